package layout

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// fixedMeasurer gives every rune a width of half the font size.
type fixedMeasurer struct{}

func (fixedMeasurer) TextWidth(text string, font Font) float64 {
	return float64(utf8.RuneCountInString(text)) * font.Size / 2
}

func (m fixedMeasurer) WrapText(text string, width float64, font Font) []string {
	return wrap(text, width, func(s string) float64 { return m.TextWidth(s, font) })
}

func (m fixedMeasurer) MeasureText(text string, width float64, font Font) float64 {
	return float64(len(m.WrapText(text, width, font))) * font.LineHeight()
}

func newTestEngine(t *testing.T) (*Engine, Cursor) {
	t.Helper()
	e := New(Options{Measurer: fixedMeasurer{}})
	c, err := e.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return e, c
}

func countText(doc *Document, s string) int {
	n := 0
	for _, p := range doc.Pages {
		for _, txt := range p.Texts() {
			if txt == s {
				n++
			}
		}
	}
	return n
}

func TestPlaceTablePaginatesAndRepeatsHeader(t *testing.T) {
	e, c := newTestEngine(t)
	table := &Table{Columns: []Column{{Title: "Attendee"}}}

	rows := make([][]string, 100)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("row-%03d", i)}
	}
	c, err := e.PlaceTable(c, table, rows)
	if err != nil {
		t.Fatalf("place table: %v", err)
	}
	_ = c

	doc, err := e.Finalize(Footer{})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	rowH := Body.LineHeight() + 2*table.Padding
	perPage := int(math.Floor((e.ContentHeight() - rowH) / rowH))
	wantPages := int(math.Ceil(float64(len(rows)) / float64(perPage)))
	if doc.PageCount() != wantPages {
		t.Fatalf("expected %d pages, got %d", wantPages, doc.PageCount())
	}
	for i, p := range doc.Pages {
		texts := p.Texts()
		if len(texts) == 0 || texts[0] != "Attendee" {
			t.Fatalf("page %d: expected header first, got %v", i+1, texts)
		}
		if n := countText(&Document{Pages: []Page{p}}, "Attendee"); n != 1 {
			t.Fatalf("page %d: expected header once, got %d", i+1, n)
		}
	}
	for _, row := range rows {
		if n := countText(doc, row[0]); n != 1 {
			t.Fatalf("expected %s exactly once, got %d", row[0], n)
		}
	}
}

func TestFinalizeUsesFinalPageCount(t *testing.T) {
	e, c := newTestEngine(t)
	var err error
	for i := 0; i < 3; i++ {
		if i > 0 {
			if c, err = e.BreakPage(c); err != nil {
				t.Fatalf("break: %v", err)
			}
		}
		if c, err = e.PlaceText(c, Text{Text: fmt.Sprintf("section %d", i)}); err != nil {
			t.Fatalf("place text: %v", err)
		}
	}
	doc, err := e.Finalize(Footer{})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	for i := 1; i <= 3; i++ {
		label := fmt.Sprintf("Page %d of 3", i)
		if n := countText(doc, label); n != 1 {
			t.Fatalf("expected %q once, got %d", label, n)
		}
	}
	if _, err := e.Finalize(Footer{}); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized on second finalize, got %v", err)
	}
	if _, err := e.PlaceText(c, Text{Text: "late"}); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized after finalize, got %v", err)
	}
}

func TestSinglePageFooter(t *testing.T) {
	e, c := newTestEngine(t)
	if _, err := e.PlaceText(c, Text{Text: "only content"}); err != nil {
		t.Fatalf("place text: %v", err)
	}
	doc, err := e.Finalize(Footer{})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if doc.PageCount() != 1 || countText(doc, "Page 1 of 1") != 1 {
		t.Fatalf("expected single page numbered Page 1 of 1, got %+v", doc.Pages[0].Texts())
	}
}

func TestEmptyTableRendersPlaceholder(t *testing.T) {
	e, c := newTestEngine(t)
	table := &Table{Columns: []Column{{Title: "Commitment"}, {Title: "Responsible"}}}
	if _, err := e.PlaceTable(c, table, nil); err != nil {
		t.Fatalf("place table: %v", err)
	}
	doc, err := e.Finalize(Footer{})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if n := countText(doc, DefaultPlaceholder); n != 1 {
		t.Fatalf("expected one placeholder row, got %d", n)
	}
	if table.Rows() != 0 {
		t.Fatalf("placeholder must not count as a data row")
	}
}

func TestRowHeightFollowsTallestCell(t *testing.T) {
	e, c := newTestEngine(t)
	table := &Table{Columns: []Column{{Title: "A"}, {Title: "B"}}}
	c, err := e.BeginTable(c, table)
	if err != nil {
		t.Fatalf("begin table: %v", err)
	}
	start := c.Y
	c, err = e.PlaceTableRow(c, table, []string{"short", "one\ntwo\nthree"})
	if err != nil {
		t.Fatalf("place row: %v", err)
	}
	want := 3*Body.LineHeight() + 2*table.Padding
	if got := c.Y - start; math.Abs(got-want) > 0.01 {
		t.Fatalf("expected row height %.2f, got %.2f", want, got)
	}
}

func TestTallRowSplitsAcrossPages(t *testing.T) {
	e, c := newTestEngine(t)
	table := &Table{Columns: []Column{{Title: "Proceedings"}}}
	lines := make([]string, 150)
	for i := range lines {
		lines[i] = fmt.Sprintf("line-%03d", i)
	}
	if _, err := e.PlaceTable(c, table, [][]string{{strings.Join(lines, "\n")}}); err != nil {
		t.Fatalf("place table: %v", err)
	}
	doc, err := e.Finalize(Footer{})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if doc.PageCount() < 3 {
		t.Fatalf("expected row to span at least 3 pages, got %d", doc.PageCount())
	}
	for _, l := range lines {
		if countText(doc, l) != 1 {
			t.Fatalf("expected %s exactly once", l)
		}
	}
}

func TestPlaceBlockBreaksWhenFull(t *testing.T) {
	e, c := newTestEngine(t)
	var err error
	for i := 0; i < 8; i++ {
		c, err = e.PlaceBlock(c, Block{Height: 100})
		if err != nil {
			t.Fatalf("place block %d: %v", i, err)
		}
	}
	if e.PageCount() != 2 || c.Page != 1 {
		t.Fatalf("expected the eighth block on page 2, got page count %d cursor %+v", e.PageCount(), c)
	}
	if _, err := e.PlaceBlock(c, Block{Height: e.ContentHeight() + 1}); !errors.Is(err, ErrBlockTooTall) {
		t.Fatalf("expected ErrBlockTooTall, got %v", err)
	}
}

func TestPageHookRunsOnEveryPage(t *testing.T) {
	e := New(Options{Measurer: fixedMeasurer{}})
	e.OnPageStart(func(e *Engine, c Cursor) (Cursor, error) {
		if c.Page == 0 {
			return c, nil
		}
		return e.PlaceText(c, Text{Text: "continued"})
	})
	c, err := e.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	for i := 0; i < 20; i++ {
		if c, err = e.PlaceBlock(c, Block{Height: 100}); err != nil {
			t.Fatalf("place block: %v", err)
		}
	}
	doc, err := e.Finalize(Footer{})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if got := countText(doc, "continued"); got != doc.PageCount()-1 {
		t.Fatalf("expected hook text on %d pages, got %d", doc.PageCount()-1, got)
	}
}

func TestWrapBreaksLongWords(t *testing.T) {
	measure := func(s string) float64 { return float64(utf8.RuneCountInString(s)) }
	got := wrap("aa bbbbbbbbbb cc", 4, measure)
	want := []string{"aa", "bbbb", "bbbb", "bb", "cc"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("wrap = %q, want %q", got, want)
	}
	for _, line := range got {
		if measure(line) > 4 {
			t.Fatalf("line %q overflows", line)
		}
	}
	if got := wrap("", 10, measure); len(got) != 1 || got[0] != "" {
		t.Fatalf("expected one empty line for empty text, got %q", got)
	}
}

func TestFontMetricsMeasureText(t *testing.T) {
	m := NewFontMetrics()
	narrow := m.TextWidth("iiii", Body)
	wide := m.TextWidth("WWWW", Body)
	if narrow <= 0 || wide <= narrow {
		t.Fatalf("expected W wider than i, got i=%.2f W=%.2f", narrow, wide)
	}
	if w := m.TextWidth("Acción Señal", Body); w <= 0 {
		t.Fatalf("expected width for accented text")
	}
	h := m.MeasureText(strings.Repeat("word ", 60), 100, Body)
	if h < 3*Body.LineHeight() {
		t.Fatalf("expected wrapping into several lines, got height %.2f", h)
	}
}

func TestWritePDFProducesReadableDocument(t *testing.T) {
	e := New(Options{})
	c, err := e.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	table := &Table{Columns: []Column{{Title: "Name", Weight: 2}, {Title: "Role"}}}
	rows := make([][]string, 80)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("Person %d", i), "Inspector"}
	}
	if _, err := e.PlaceTable(c, table, rows); err != nil {
		t.Fatalf("place table: %v", err)
	}
	doc, err := e.Finalize(Footer{})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	var buf bytes.Buffer
	if err := doc.WritePDF(&buf, Meta{Title: "Test"}); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	r, err := pdf.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if r.NumPage() != doc.PageCount() {
		t.Fatalf("expected %d pages, got %d", doc.PageCount(), r.NumPage())
	}
	text, err := r.Page(r.NumPage()).GetPlainText(nil)
	if err != nil {
		t.Fatalf("page text: %v", err)
	}
	want := fmt.Sprintf("Page %d of %d", doc.PageCount(), doc.PageCount())
	if !strings.Contains(text, want) {
		t.Fatalf("expected %q in last page text, got %q", want, text)
	}
}
