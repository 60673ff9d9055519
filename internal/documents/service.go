package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"sst-backend/document/model"
	"sst-backend/document/render"
	"sst-backend/internal/shared/auth"
	"sst-backend/internal/shared/metrics"
	"sst-backend/internal/shared/storage/object"
	"sst-backend/internal/shared/telemetry"
	"sst-backend/internal/uploads"
)

// Service renders controlled documents and keeps a registry of stored ones.
type Service struct {
	Store        object.ObjectStore
	Repo         DocumentsRepo
	Catalog      *render.Catalog
	ApproverRole string
	Now          func() time.Time
}

// NewService constructs a Service. A nil catalog falls back to the built-in one.
func NewService(store object.ObjectStore, repo DocumentsRepo, catalog *render.Catalog, approverRole string) *Service {
	if catalog == nil {
		catalog = render.DefaultCatalog()
	}
	return &Service{
		Store:        store,
		Repo:         repo,
		Catalog:      catalog,
		ApproverRole: approverRole,
	}
}

// RenderInput names a profile and carries its JSON fields.
type RenderInput struct {
	Profile string
	Fields  json.RawMessage
}

// Rendered is a generated PDF held in memory.
type Rendered struct {
	Profile  model.Kind
	Title    string
	Code     string
	FileName string
	Pages    int
	PDF      []byte
}

// Render lays out and encodes the document without storing it.
func (s *Service) Render(ctx context.Context, in RenderInput) (Rendered, error) {
	if err := ctx.Err(); err != nil {
		return Rendered{}, err
	}
	kind, err := model.ParseKind(in.Profile)
	if err != nil {
		return Rendered{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	profile, err := render.Decode(kind, in.Fields, s.Catalog)
	if err != nil {
		return Rendered{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	start := time.Now()
	var buf bytes.Buffer
	doc, err := render.PDF(&buf, profile, render.Options{Now: s.now()})
	if err != nil {
		metrics.ObserveRender(string(kind), 0, time.Since(start), err)
		telemetry.Error("documents.render_failed", map[string]any{"profile": string(kind), "error": err})
		return Rendered{}, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	metrics.ObserveRender(string(kind), doc.PageCount(), time.Since(start), nil)

	h := profile.Header()
	return Rendered{
		Profile:  kind,
		Title:    h.Title,
		Code:     h.Code,
		FileName: fileName(h.Code, h.Title),
		Pages:    doc.PageCount(),
		PDF:      buf.Bytes(),
	}, nil
}

// Save stores a rendered PDF and registers it. The stored path can be passed
// to a signature request as its original document.
func (s *Service) Save(ctx context.Context, id auth.Identity, r Rendered) (Document, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	key, size, _, err := s.Store.Save(ctx, uploads.NamespaceRendered, r.FileName, bytes.NewReader(r.PDF))
	if err != nil {
		return Document{}, fmt.Errorf("store document: %w", err)
	}

	doc := Document{
		ID:         uuid.NewString(),
		Profile:    r.Profile,
		Title:      r.Title,
		Code:       r.Code,
		StorageKey: key,
		SizeBytes:  size,
		Pages:      r.Pages,
		CreatedBy:  id.UserID,
		CreatedAt:  s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			telemetry.Warn("documents.cleanup_failed", map[string]any{"key": key, "error": delErr})
		}
		return Document{}, err
	}
	telemetry.Info("documents.stored", map[string]any{
		"document_id": doc.ID,
		"profile":     string(doc.Profile),
		"pages":       doc.Pages,
		"key":         key,
	})
	return doc, nil
}

// List returns the caller's documents, or everyone's for approvers.
func (s *Service) List(ctx context.Context, id auth.Identity, limit, offset int) ([]Document, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	createdBy := id.UserID
	if id.HasRole(s.ApproverRole) {
		createdBy = ""
	}
	return s.Repo.List(ctx, createdBy, limit, offset)
}

// Open returns the stored PDF of a document visible to the caller.
func (s *Service) Open(ctx context.Context, id auth.Identity, documentID string) (io.ReadCloser, Document, error) {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, Document{}, err
	}
	if doc.CreatedBy != id.UserID && !id.HasRole(s.ApproverRole) {
		return nil, Document{}, ErrForbidden
	}
	body, err := s.Store.Open(ctx, doc.StorageKey)
	if errors.Is(err, object.ErrNotFound) {
		return nil, Document{}, ErrNotFound
	}
	if err != nil {
		return nil, Document{}, err
	}
	return body, doc, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// fileName slugs code and title with accents folded to ASCII, so
// "SST-FO-014", "Acta de reunión" becomes "sst-fo-014-acta-de-reunion.pdf".
func fileName(code, title string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, code+" "+title)
	if err != nil {
		folded = code + " " + title
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "documento"
	}
	return slug + ".pdf"
}
