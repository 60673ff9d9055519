package users

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, name, email, role, active, created_at
FROM users
WHERE id = $1
LIMIT 1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func (r *PGRepo) ListActiveByRole(ctx context.Context, role string) ([]User, error) {
	const query = `
SELECT id, name, email, role, active, created_at
FROM users
WHERE lower(role) = lower($1) AND active
ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var user User
	var email sql.NullString
	if err := row.Scan(&user.ID, &user.Name, &email, &user.Role, &user.Active, &user.CreatedAt); err != nil {
		return User{}, err
	}
	if email.Valid {
		user.Email = email.String
	}
	return user, nil
}
