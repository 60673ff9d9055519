package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a storage key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore saves and retrieves binary objects addressed by relative keys such
// as "requests/originals/<id>_acta.pdf".
type ObjectStore interface {
	// Save stores r under namespace with a unique name derived from fileName and
	// returns the key, the byte size and the sniffed MIME type.
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	// SaveWithKey stores r at exactly storageKey, replacing any previous object.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// Delete removes storageKey. Deleting a missing key returns ErrNotFound.
	Delete(ctx context.Context, storageKey string) error
}

// ReadAll opens storageKey and reads it fully.
func ReadAll(ctx context.Context, store ObjectStore, storageKey string) ([]byte, error) {
	body, err := store.Open(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}
