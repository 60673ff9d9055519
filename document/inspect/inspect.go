// Package inspect reads page-level facts out of stored PDFs.
package inspect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"sst-backend/internal/shared/storage/object"
)

const mimePDF = "application/pdf"

// ErrNotPDF is returned for payloads that are not PDF documents.
var ErrNotPDF = errors.New("not a PDF document")

// Page summarizes one page.
type Page struct {
	Number int
	Text   string
	// Images counts XObject paint operators in the page content.
	Images int
}

// Document summarizes a PDF.
type Document struct {
	Pages []Page
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Last returns the last page.
func (d *Document) Last() Page {
	if len(d.Pages) == 0 {
		return Page{}
	}
	return d.Pages[len(d.Pages)-1]
}

// IsPDF reports whether data looks like a PDF by content.
func IsPDF(data []byte) bool {
	return mimetype.Detect(data).Is(mimePDF)
}

// FromStore opens key in store and inspects it.
func FromStore(ctx context.Context, store object.ObjectStore, key string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("inspect key=%s: %w", key, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("inspect key=%s: read: %w", key, err)
	}
	doc, err := Bytes(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("inspect key=%s: %w", key, err)
	}
	return doc, nil
}

// Bytes inspects an in-memory PDF.
func Bytes(ctx context.Context, data []byte) (doc *Document, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !IsPDF(data) {
		return nil, ErrNotPDF
	}
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	n := reader.NumPage()
	doc = &Document{Pages: make([]Page, 0, n)}
	for i := 1; i <= n; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			return nil, fmt.Errorf("page %d not found", i)
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		doc.Pages = append(doc.Pages, Page{Number: i, Text: text, Images: countImages(p)})
	}
	return doc, nil
}

// PageCount is a shortcut for Bytes(ctx, data).PageCount().
func PageCount(ctx context.Context, data []byte) (int, error) {
	doc, err := Bytes(ctx, data)
	if err != nil {
		return 0, err
	}
	return doc.PageCount(), nil
}

func countImages(p pdf.Page) int {
	contents := p.V.Key("Contents")
	if contents.IsNull() {
		return 0
	}
	xobjects := p.Resources().Key("XObject")
	n := 0
	pdf.Interpret(contents, func(stk *pdf.Stack, op string) {
		if op != "Do" || stk.Len() == 0 {
			return
		}
		name := stk.Pop().Name()
		if xobjects.Key(name).Key("Subtype").Name() == "Image" {
			n++
		}
	})
	return n
}
