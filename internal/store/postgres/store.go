package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptvault/promptvault/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	pool     *pgxpool.Pool
	logs     *LogRepo
	users    *UserRepo
	sessions *SessionRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:     pool,
		logs:     NewLogRepo(pool, domain.NewIDGenerator()),
		users:    NewUserRepo(pool),
		sessions: NewSessionRepo(pool),
	}, nil
}

// Migrate applies the schema. All statements are idempotent, so running it
// on every startup is safe.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres.Migrate: %w", err)
	}
	return nil
}

// Truncate empties all tables. Integration tests call it between runs.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE prompt_logs, users, sessions`); err != nil {
		return fmt.Errorf("postgres.Truncate: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Logs() domain.LogRepository         { return s.logs }
func (s *Store) Users() domain.UserRepository       { return s.users }
func (s *Store) Sessions() domain.SessionRepository { return s.sessions }
