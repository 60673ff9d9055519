package documents

import "context"

// DocumentsRepo defines persistence operations for rendered documents.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	// List returns documents newest first. An empty createdBy lists everyone's.
	List(ctx context.Context, createdBy string, limit, offset int) ([]Document, error)
}
