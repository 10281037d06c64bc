package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptvault/promptvault/internal/domain"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, first_name, last_name, profile_image_url, created_at, updated_at`

func (r *UserRepo) Get(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("userRepo.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.Get: %w", err)
	}

	return u, nil
}

func (r *UserRepo) Upsert(ctx context.Context, u *domain.User) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		     email = EXCLUDED.email, first_name = EXCLUDED.first_name,
		     last_name = EXCLUDED.last_name,
		     profile_image_url = EXCLUDED.profile_image_url,
		     updated_at = now()
		 RETURNING `+userColumns,
		u.ID, nilIfEmpty(u.Email), nilIfEmpty(u.FirstName),
		nilIfEmpty(u.LastName), nilIfEmpty(u.ProfileImageURL),
	)

	stored, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("userRepo.Upsert: %w", err)
	}

	return stored, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var email, firstName, lastName, profileImageURL *string

	err := row.Scan(&u.ID, &email, &firstName, &lastName, &profileImageURL,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	u.Email = derefStr(email)
	u.FirstName = derefStr(firstName)
	u.LastName = derefStr(lastName)
	u.ProfileImageURL = derefStr(profileImageURL)

	return &u, nil
}
