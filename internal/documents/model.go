package documents

import (
	"time"

	"sst-backend/document/model"
)

// Document is a generated PDF registered after being stored. Rows are never
// updated: every render produces a new file and a new row.
type Document struct {
	ID         string
	Profile    model.Kind
	Title      string
	Code       string
	StorageKey string
	SizeBytes  int64
	Pages      int
	CreatedBy  string
	CreatedAt  time.Time
}
