package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-credit/meridian/internal/shared"
)

// User is a staff account able to sign in.
type User struct {
	ID           int64
	Fullname     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
}

// Repository loads staff accounts for authentication.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed auth repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT id, fullname, email, password_hash, role, is_active
		FROM users
		WHERE LOWER(email) = LOWER($1)`,
		email,
	).Scan(&u.ID, &u.Fullname, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
