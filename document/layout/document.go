package layout

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

// DefaultPageFormat is the footer page numbering format.
const DefaultPageFormat = "Page %d of %d"

// Footer describes the numbering drawn in the footer band of every page.
type Footer struct {
	Format string // fmt layout receiving page number and page count
	Font   Font
	Align  Align
	Left   string // optional text drawn at the left edge, e.g. a document code
}

// Document is a finalized, immutable set of pages.
type Document struct {
	Size  Size
	Pages []Page
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Finalize closes the engine and draws the footer on every page now that the total
// page count is known.
func (e *Engine) Finalize(f Footer) (*Document, error) {
	if e.finalized {
		return nil, ErrFinalized
	}
	if len(e.pages) == 0 {
		if _, err := e.startPage(); err != nil {
			return nil, err
		}
	}
	e.finalized = true
	e.table = nil
	if f.Format == "" {
		f.Format = DefaultPageFormat
	}
	if f.Font.Size <= 0 {
		f.Font = Body.WithSize(7)
	}
	if f.Align == AlignLeft && f.Left == "" {
		f.Align = AlignRight
	}

	total := len(e.pages)
	top := e.Bottom() + (e.margins.Bottom-f.Font.LineHeight())/2
	pages := make([]Page, total)
	for i, p := range e.pages {
		ops := make([]Op, len(p.Ops), len(p.Ops)+2)
		copy(ops, p.Ops)
		label := fmt.Sprintf(f.Format, i+1, total)
		ops = append(ops, e.TextOp(e.Left(), top, e.ContentWidth(), label, f.Font, f.Align))
		if f.Left != "" {
			ops = append(ops, e.TextOp(e.Left(), top, e.ContentWidth(), f.Left, f.Font, AlignLeft))
		}
		pages[i] = Page{Number: p.Number, Ops: ops}
	}
	return &Document{Size: e.size, Pages: pages}, nil
}

// Meta is written into the PDF information dictionary.
type Meta struct {
	Title     string
	Creator   string
	CreatedAt time.Time
}

// WritePDF replays the buffered pages through fpdf and writes the PDF to w.
func (d *Document) WritePDF(w io.Writer, meta Meta) error {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: d.Size.W, Ht: d.Size.H},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	if meta.Title != "" {
		pdf.SetTitle(meta.Title, true)
	}
	if meta.Creator != "" {
		pdf.SetCreator(meta.Creator, true)
	}
	if !meta.CreatedAt.IsZero() {
		pdf.SetCreationDate(meta.CreatedAt)
		pdf.SetModificationDate(meta.CreatedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	images := map[string]bool{}

	for _, page := range d.Pages {
		pdf.AddPage()
		for _, op := range page.Ops {
			switch op.Kind {
			case OpText:
				pdf.SetFont(fontFamily(op.Font), op.Font.Style, op.Font.Size)
				pdf.SetTextColor(int(op.Color.R), int(op.Color.G), int(op.Color.B))
				pdf.Text(op.X, op.Y, tr(op.Text))
			case OpLine:
				pdf.SetLineWidth(lineWidth(op))
				pdf.SetDrawColor(int(op.Color.R), int(op.Color.G), int(op.Color.B))
				pdf.Line(op.X, op.Y, op.X2, op.Y2)
			case OpRect:
				style := "D"
				if op.Fill {
					style = "F"
					pdf.SetFillColor(int(op.Color.R), int(op.Color.G), int(op.Color.B))
				} else {
					pdf.SetDrawColor(int(op.Color.R), int(op.Color.G), int(op.Color.B))
				}
				pdf.SetLineWidth(lineWidth(op))
				pdf.Rect(op.X, op.Y, op.W, op.H, style)
			case OpImage:
				name := imageName(op.Image)
				opts := fpdf.ImageOptions{ImageType: op.ImageType, ReadDpi: false}
				if !images[name] {
					pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(op.Image))
					images[name] = true
				}
				pdf.ImageOptions(name, op.X, op.Y, op.W, op.H, false, opts, 0, "")
			}
			if pdf.Err() {
				return fmt.Errorf("write page %d: %w", page.Number, pdf.Error())
			}
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func lineWidth(op Op) float64 {
	if op.LineWidth <= 0 {
		return 0.5
	}
	return op.LineWidth
}

func imageName(data []byte) string {
	sum := sha1.Sum(data)
	return "img-" + hex.EncodeToString(sum[:8])
}
