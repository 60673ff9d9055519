package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PGRepo stores requests in Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

const requestColumns = `id, requester_id, requester_name, requester_role, type, message,
    original_document_path, signed_document_path, status, reviewer_id, reviewer_comment,
    version, created_at, responded_at`

func (r *PGRepo) Create(ctx context.Context, req Request) (Request, error) {
	const query = `
INSERT INTO signature_requests (requester_id, requester_name, requester_role, type, message, original_document_path)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + requestColumns
	row := r.DB.QueryRowContext(ctx, query,
		req.RequesterID,
		req.RequesterName,
		req.RequesterRole,
		req.Type,
		req.Message,
		nullableString(req.OriginalDocumentPath),
	)
	return scanRequest(row)
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (Request, error) {
	const query = `SELECT ` + requestColumns + ` FROM signature_requests WHERE id = $1`
	req, err := scanRequest(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	return req, err
}

func (r *PGRepo) List(ctx context.Context, filter ListFilter) ([]Request, error) {
	var (
		where []string
		args  []any
	)
	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		where = append(where, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + requestColumns + ` FROM signature_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *PGRepo) Decide(ctx context.Context, id int64, version int, d Decision) (Request, error) {
	const query = `
UPDATE signature_requests
SET status = $1,
    reviewer_id = $2,
    reviewer_comment = $3,
    signed_document_path = $4,
    responded_at = $5,
    version = version + 1
WHERE id = $6 AND status = 'pending' AND version = $7
RETURNING ` + requestColumns
	req, err := scanRequest(r.DB.QueryRowContext(ctx, query,
		string(d.Status),
		d.ReviewerID,
		nullableString(d.Comment),
		nullableString(d.SignedDocumentPath),
		d.RespondedAt,
		id,
		version,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, ErrConflict
	}
	return req, err
}

func (r *PGRepo) SetSignedDocument(ctx context.Context, id int64, version int, path string) (Request, error) {
	const query = `
UPDATE signature_requests
SET signed_document_path = $1,
    version = version + 1
WHERE id = $2 AND version = $3 AND status = 'approved' AND original_document_path IS NOT NULL
RETURNING ` + requestColumns
	req, err := scanRequest(r.DB.QueryRowContext(ctx, query, path, id, version))
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, ErrConflict
	}
	return req, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (Request, error) {
	var (
		req                                 Request
		status                              string
		original, signed, reviewer, comment sql.NullString
		respondedAt                         sql.NullTime
	)
	if err := row.Scan(
		&req.ID,
		&req.RequesterID,
		&req.RequesterName,
		&req.RequesterRole,
		&req.Type,
		&req.Message,
		&original,
		&signed,
		&status,
		&reviewer,
		&comment,
		&req.Version,
		&req.CreatedAt,
		&respondedAt,
	); err != nil {
		return Request{}, err
	}
	req.Status = Status(status)
	req.OriginalDocumentPath = stringPtr(original)
	req.SignedDocumentPath = stringPtr(signed)
	req.ReviewerID = stringPtr(reviewer)
	req.ReviewerComment = stringPtr(comment)
	if respondedAt.Valid {
		t := respondedAt.Time.UTC()
		req.RespondedAt = &t
	}
	req.CreatedAt = req.CreatedAt.UTC()
	return req, nil
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
