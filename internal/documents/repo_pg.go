package documents

import (
	"context"
	"database/sql"
	"errors"

	"sst-backend/document/model"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ DocumentsRepo = (*PGRepo)(nil)

const documentColumns = `id, profile, title, code, storage_key, size_bytes, pages, created_by, created_at`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO rendered_documents (
    id,
    profile,
    title,
    code,
    storage_key,
    size_bytes,
    pages,
    created_by,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		string(doc.Profile),
		doc.Title,
		doc.Code,
		doc.StorageKey,
		doc.SizeBytes,
		doc.Pages,
		doc.CreatedBy,
		doc.CreatedAt,
	)
	return err
}

// GetByID fetches one document.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM rendered_documents WHERE id = $1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// List returns documents newest first.
func (r *PGRepo) List(ctx context.Context, createdBy string, limit, offset int) ([]Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM rendered_documents
WHERE ($1 = '' OR created_by = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, createdBy, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc     Document
		profile string
	)
	if err := row.Scan(
		&doc.ID,
		&profile,
		&doc.Title,
		&doc.Code,
		&doc.StorageKey,
		&doc.SizeBytes,
		&doc.Pages,
		&doc.CreatedBy,
		&doc.CreatedAt,
	); err != nil {
		return Document{}, err
	}
	doc.Profile = model.Kind(profile)
	doc.CreatedAt = doc.CreatedAt.UTC()
	return doc, nil
}
