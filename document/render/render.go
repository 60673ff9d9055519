package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"sst-backend/document/layout"
	"sst-backend/document/model"
)

// ErrInvalidPayload is returned when a profile payload cannot be decoded or validated.
var ErrInvalidPayload = errors.New("invalid document payload")

// Profile is a document type that knows how to lay itself out.
type Profile interface {
	Kind() model.Kind
	Header() model.Header
	Layout(e *layout.Engine) error
}

// Options tune a render call. The zero value is usable.
type Options struct {
	Measurer layout.Measurer
	Creator  string
	Now      time.Time
}

// Render lays p out and returns the finalized pages.
func Render(p Profile, opts Options) (*layout.Document, error) {
	e := layout.New(layout.Options{Measurer: opts.Measurer})
	if err := p.Layout(e); err != nil {
		return nil, fmt.Errorf("render %s: %w", p.Kind(), err)
	}
	doc, err := e.Finalize(layout.Footer{Left: p.Header().Code})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", p.Kind(), err)
	}
	return doc, nil
}

// PDF renders p and writes the PDF to w.
func PDF(w io.Writer, p Profile, opts Options) (*layout.Document, error) {
	doc, err := Render(p, opts)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	creator := opts.Creator
	if creator == "" {
		creator = "sst-backend"
	}
	if err := doc.WritePDF(w, layout.Meta{Title: p.Header().Title, Creator: creator, CreatedAt: now}); err != nil {
		return nil, fmt.Errorf("render %s: %w", p.Kind(), err)
	}
	return doc, nil
}

// Decode builds the profile for kind from a JSON payload. Header fields missing from
// the payload are taken from the catalog, then placeholders fill the rest.
func Decode(kind model.Kind, raw json.RawMessage, catalog *Catalog) (Profile, error) {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	switch kind {
	case model.KindMinutes:
		var m model.Minutes
		if err := unmarshal(raw, &m); err != nil {
			return nil, err
		}
		model.ApplyHeaderDefaults(&m.Header, catalog.Header(kind))
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return NewMinutes(m), nil
	case model.KindGeneric:
		var r model.Report
		if err := unmarshal(raw, &r); err != nil {
			return nil, err
		}
		model.ApplyHeaderDefaults(&r.Header, catalog.Header(kind))
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return NewDeclarative(r), nil
	default:
		return nil, fmt.Errorf("%w: unknown profile %q", ErrInvalidPayload, kind)
	}
}

func unmarshal(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty fields", ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
