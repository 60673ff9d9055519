package notifications

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo stores notifications in Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

const notificationColumns = `id, recipient_user_id, recipient_role, title, message, route, read, hidden, created_at`

func (r *PGRepo) Create(ctx context.Context, n Notification) (Notification, error) {
	const query = `
INSERT INTO notifications (recipient_user_id, recipient_role, title, message, route)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + notificationColumns
	row := r.DB.QueryRowContext(ctx, query,
		nullableString(n.RecipientUserID),
		nullableString(n.RecipientRole),
		n.Title,
		n.Message,
		nullableString(n.Route),
	)
	return scanNotification(row)
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (Notification, error) {
	const query = `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	n, err := scanNotification(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Notification{}, ErrNotFound
	}
	return n, err
}

func (r *PGRepo) ListVisible(ctx context.Context, userID, role string, limit int) ([]Notification, error) {
	const query = `
SELECT ` + notificationColumns + `
FROM notifications
WHERE NOT hidden
  AND (recipient_user_id = $1 OR ($2 <> '' AND lower(recipient_role) = lower($2)))
ORDER BY created_at DESC, id DESC
LIMIT $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, role, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PGRepo) SetRead(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
}

func (r *PGRepo) SetHidden(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE notifications SET hidden = TRUE WHERE id = $1`, id)
}

func (r *PGRepo) exec(ctx context.Context, query string, id int64) error {
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (Notification, error) {
	var n Notification
	var userID, role, route sql.NullString
	if err := row.Scan(&n.ID, &userID, &role, &n.Title, &n.Message, &route, &n.Read, &n.Hidden, &n.CreatedAt); err != nil {
		return Notification{}, err
	}
	n.RecipientUserID = stringPtr(userID)
	n.RecipientRole = stringPtr(role)
	n.Route = stringPtr(route)
	return n, nil
}

func nullableString(value *string) any {
	if value == nil || *value == "" {
		return nil
	}
	return *value
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
