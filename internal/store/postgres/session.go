package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptvault/promptvault/internal/domain"
)

// SessionRepo persists login sessions in the sessions table: serialized
// payload keyed by sid, with an indexed expiry column. Expired rows are
// invisible to Get and reaped opportunistically on Create.
type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

type sessionPayload struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	payload, err := json.Marshal(sessionPayload{
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("sessionRepo.Create: marshal payload: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO sessions (sid, payload, expires_at) VALUES ($1, $2, $3)`,
		s.SID, payload, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.Create: %w", err)
	}

	// Best-effort reaping; the expiry index keeps this cheap.
	_, err = r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return fmt.Errorf("sessionRepo.Create: reap expired: %w", err)
	}

	return nil
}

func (r *SessionRepo) Get(ctx context.Context, sid string) (*domain.Session, error) {
	var payload []byte
	var s domain.Session

	err := r.pool.QueryRow(ctx,
		`SELECT sid, payload, expires_at FROM sessions
		 WHERE sid = $1 AND expires_at > now()`,
		sid,
	).Scan(&s.SID, &payload, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("sessionRepo.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.Get: %w", err)
	}

	var p sessionPayload
	err = json.Unmarshal(payload, &p)
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.Get: unmarshal payload: %w", err)
	}

	s.UserID = p.UserID
	s.CreatedAt = p.CreatedAt

	return &s, nil
}

func (r *SessionRepo) Delete(ctx context.Context, sid string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE sid = $1`, sid)
	if err != nil {
		return fmt.Errorf("sessionRepo.Delete: %w", err)
	}

	return nil
}
