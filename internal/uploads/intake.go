// Package uploads validates multipart files and moves them into the object store.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"sst-backend/internal/shared/storage/object"
	"sst-backend/internal/shared/telemetry"
)

// Storage namespaces.
const (
	NamespaceOriginals  = "requests/originals"
	NamespaceSigned     = "requests/signed"
	NamespaceSignatures = "signatures/tmp"
	NamespaceRendered   = "documents/rendered"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrTooLarge        = errors.New("file exceeds size limit")
	ErrUnsupportedType = errors.New("file type not allowed")
)

// Policy restricts what an upload may contain.
type Policy struct {
	Name    string
	Allowed []string
}

var (
	// DocumentPolicy accepts request attachments.
	DocumentPolicy = Policy{Name: "document", Allowed: []string{"application/pdf"}}
	// SignaturePolicy accepts raster signature images.
	SignaturePolicy = Policy{Name: "signature", Allowed: []string{"image/png", "image/jpeg", "image/gif", "image/webp"}}
)

func (p Policy) allows(m *mimetype.MIME) bool {
	for _, allowed := range p.Allowed {
		if m.Is(allowed) {
			return true
		}
	}
	return false
}

// File is a validated, stored upload.
type File struct {
	Key      string `json:"key"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"sizeBytes"`
}

// Intake stores validated uploads.
type Intake struct {
	Store    object.ObjectStore
	MaxBytes int64
}

func NewIntake(store object.ObjectStore, maxBytes int64) *Intake {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Intake{Store: store, MaxBytes: maxBytes}
}

// FromMultipart validates and stores a multipart file header. A nil header
// returns (nil, nil).
func (in *Intake) FromMultipart(ctx context.Context, fh *multipart.FileHeader, namespace string, policy Policy) (*File, error) {
	if fh == nil {
		return nil, nil
	}
	if fh.Size > in.MaxBytes {
		return nil, fmt.Errorf("%s %q: %w", policy.Name, fh.Filename, ErrTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", policy.Name, err)
	}
	defer f.Close()
	return in.Save(ctx, namespace, fh.Filename, f, policy)
}

// Save reads r fully, checks its size and sniffed type, and stores it under namespace.
func (in *Intake) Save(ctx context.Context, namespace, fileName string, r io.Reader, policy Policy) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, in.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", policy.Name, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s %q: %w", policy.Name, fileName, ErrEmptyFile)
	}
	if int64(len(data)) > in.MaxBytes {
		return nil, fmt.Errorf("%s %q: %w", policy.Name, fileName, ErrTooLarge)
	}
	detected := mimetype.Detect(data)
	if !policy.allows(detected) {
		return nil, fmt.Errorf("%s %q is %s: %w", policy.Name, fileName, detected.String(), ErrUnsupportedType)
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = policy.Name + detected.Extension()
	}
	key, size, mimeType, err := in.Store.Save(ctx, namespace, name, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", policy.Name, err)
	}
	return &File{Key: key, FileName: name, MimeType: mimeType, Size: size}, nil
}

// Read returns the stored bytes of f.
func (in *Intake) Read(ctx context.Context, f *File) ([]byte, error) {
	return object.ReadAll(ctx, in.Store, f.Key)
}

// Discard deletes a temporary upload. Failures are logged, never returned.
func (in *Intake) Discard(ctx context.Context, f *File) {
	if f == nil || f.Key == "" {
		return
	}
	// Cleanup runs even when the request context is already cancelled.
	ctx = context.WithoutCancel(ctx)
	if err := in.Store.Delete(ctx, f.Key); err != nil && !errors.Is(err, object.ErrNotFound) {
		telemetry.Warn("uploads.discard_failed", map[string]any{"key": f.Key, "error": err})
	}
}
