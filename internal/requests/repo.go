package requests

import "context"

// Repo persists signature requests. Decide and SetSignedDocument are
// conditional on the version read by the caller and return ErrConflict when
// another writer got there first.
type Repo interface {
	Create(ctx context.Context, req Request) (Request, error)
	GetByID(ctx context.Context, id int64) (Request, error)
	List(ctx context.Context, filter ListFilter) ([]Request, error)
	Decide(ctx context.Context, id int64, version int, d Decision) (Request, error)
	SetSignedDocument(ctx context.Context, id int64, version int, path string) (Request, error)
}
