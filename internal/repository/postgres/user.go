package postgres

import (
	"context"
	"errors"

	"orderChat/internal/domain/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) SaveUser(ctx context.Context, u models.User) error {
	const op = "postgres.SaveUser"

	_, err := r.db.Exec(
		ctx,
		`INSERT INTO users (id, email, name, pass_hash, role, is_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID,
		u.Email,
		u.Name,
		u.PassHash,
		string(u.Role),
		u.IsVerified,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrUserExists
		}
		return wrap(op, err)
	}

	return nil
}

const selectUser = `SELECT id, email, name, pass_hash, role, is_verified, created_at, updated_at FROM users`

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	var role string

	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PassHash, &role, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, err
	}

	u.Role = models.Role(role)

	return u, nil
}

func (r *Repository) User(ctx context.Context, id uuid.UUID) (models.User, error) {
	const op = "postgres.User"

	u, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, models.ErrUserNotFound
		}
		return models.User{}, wrap(op, err)
	}

	return u, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "postgres.UserByEmail"

	u, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, models.ErrUserNotFound
		}
		return models.User{}, wrap(op, err)
	}

	return u, nil
}
