package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ledongthuc/pdf"

	"sst-backend/document/layout"
	"sst-backend/document/model"
)

func contains(texts []string, want string) bool {
	for _, t := range texts {
		if strings.Contains(t, want) {
			return true
		}
	}
	return false
}

func allTexts(doc *layout.Document) []string {
	var out []string
	for _, p := range doc.Pages {
		out = append(out, p.Texts()...)
	}
	return out
}

func TestMinutesFillPlaceholders(t *testing.T) {
	p := NewMinutes(model.Minutes{
		Header:    model.Header{Title: "Comité de convivencia"},
		Attendees: []model.Attendee{{Name: "Ana Ruiz", Role: "Chair"}},
	})
	doc, err := Render(p, Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	texts := allTexts(doc)
	for _, want := range []string{"COMITÉ DE CONVIVENCIA", "Ana Ruiz", model.NotRecorded, layout.DefaultPlaceholder, "Code: " + model.NotApplicable} {
		if !contains(texts, want) {
			t.Fatalf("expected %q in rendered text, got %v", want, texts)
		}
	}
	last := doc.Pages[len(doc.Pages)-1].Texts()
	if !contains(last, fmt.Sprintf("Page %d of %d", doc.PageCount(), doc.PageCount())) {
		t.Fatalf("expected footer on last page, got %v", last)
	}
}

func TestMinutesAttendanceRepeatsHeaderOnEveryPage(t *testing.T) {
	m := model.Minutes{Header: model.Header{Title: "Brigada", Code: "SST-FO-014", Version: "3"}}
	for i := 0; i < 120; i++ {
		m.Attendees = append(m.Attendees, model.Attendee{Name: fmt.Sprintf("Attendee %03d", i), Role: "Operator"})
	}
	doc, err := Render(NewMinutes(m), Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if doc.PageCount() < 3 {
		t.Fatalf("expected at least 3 pages, got %d", doc.PageCount())
	}
	seen := 0
	for i, page := range doc.Pages {
		texts := page.Texts()
		if i > 0 && !contains(texts, "SST-FO-014 v3") {
			t.Fatalf("page %d missing running header: %v", i+1, texts)
		}
		if !contains(texts, "Attendee ") {
			continue
		}
		if !contains(texts, "Name") || !contains(texts, "Signature") {
			t.Fatalf("page %d has attendees without the column titles", i+1)
		}
		for _, s := range texts {
			if strings.HasPrefix(s, "Attendee ") {
				seen++
			}
		}
	}
	if seen != 120 {
		t.Fatalf("expected 120 attendee rows, got %d", seen)
	}
}

func TestHeaderMetadataWrapsInsideCell(t *testing.T) {
	const code = "SST-FOR-COPASST-ACTA-REUNION-ORDINARIA-0001"
	doc, err := Render(NewMinutes(model.Minutes{
		Header: model.Header{Title: "Acta de reunión", Code: code, Version: "2"},
	}), Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	first := doc.Pages[0]

	right := 0.0
	for _, op := range first.Ops {
		if op.Kind == layout.OpRect {
			right = max(right, op.X+op.W)
		}
	}
	m := layout.NewFontMetrics()
	for _, op := range first.Ops {
		if op.Kind != layout.OpText {
			continue
		}
		if end := op.X + m.TextWidth(op.Text, op.Font); end > right+0.5 {
			t.Fatalf("text %q ends at %.1f past the header edge %.1f", op.Text, end, right)
		}
	}
	if joined := strings.Join(first.Texts(), ""); !strings.Contains(joined, code) {
		t.Fatalf("expected the full code across wrapped lines, got %v", first.Texts())
	}
}

func TestDeclarativeSecondSignatureBlock(t *testing.T) {
	withDriver := NewDeclarative(model.Report{
		Header: model.Header{Title: "Inspección preoperacional"},
		Fields: []model.Field{{Label: "Plate", Value: "KLM-204"}, {Label: "Driver name", Value: "Luis Mora"}},
		Signer: model.Signatory{Name: "Carla Diaz"},
	})
	if got := len(withDriver.Signers()); got != 2 {
		t.Fatalf("expected two signature blocks, got %d", got)
	}
	doc, err := Render(withDriver, Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	texts := allTexts(doc)
	for _, want := range []string{"• Plate:", "KLM-204", "Carla Diaz", "Prepared by", "Driver name"} {
		if !contains(texts, want) {
			t.Fatalf("expected %q in rendered text, got %v", want, texts)
		}
	}

	single := NewDeclarative(model.Report{
		Header: model.Header{Title: "Política de seguridad vial"},
		Fields: []model.Field{{Label: "Plate", Value: "KLM-204"}},
	})
	if got := len(single.Signers()); got != 1 {
		t.Fatalf("expected one signature block, got %d", got)
	}
}

func TestDecode(t *testing.T) {
	raw := json.RawMessage(`{"header":{"title":""},"body":"Compromiso","fields":[{"label":"Responsable","value":"Marta"}]}`)
	p, err := Decode(model.KindGeneric, raw, DefaultCatalog())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Header().Title != "Report" || p.Header().Code != "SST-FO-002" {
		t.Fatalf("expected catalog defaults, got %+v", p.Header())
	}

	if _, err := Decode(model.KindMinutes, json.RawMessage(`{"attendees":[{"name":""}]}`), nil); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if _, err := Decode(model.Kind("invoice"), raw, nil); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for unknown kind, got %v", err)
	}
	if _, err := Decode(model.KindGeneric, nil, nil); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for empty payload, got %v", err)
	}
}

func TestParseCatalog(t *testing.T) {
	raw := []byte(`
organization: Transportes Andinos
profiles:
  acta:
    title: Acta COPASST
    code: SST-FO-014
`)
	cat, err := ParseCatalog(raw, t.TempDir())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	h := cat.Header(model.KindMinutes)
	if h.Title != "Acta COPASST" || h.Code != "SST-FO-014" || h.Version != "1" || h.Organization != "Transportes Andinos" {
		t.Fatalf("unexpected minutes header %+v", h)
	}
	if g := cat.Header(model.KindGeneric); g.Code != "SST-FO-002" {
		t.Fatalf("expected default generic header, got %+v", g)
	}
	if _, err := ParseCatalog([]byte("profiles:\n  invoice:\n    title: x\n"), ""); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
}

func TestPDFIsReadable(t *testing.T) {
	var buf bytes.Buffer
	p := NewMinutes(model.Minutes{
		Header:    model.Header{Title: "Safety committee", Code: "SST-FO-014"},
		Objective: "Review incidents",
	})
	doc, err := PDF(&buf, p, Options{Now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	r, err := pdf.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if r.NumPage() != doc.PageCount() {
		t.Fatalf("expected %d pages, got %d", doc.PageCount(), r.NumPage())
	}
	text, err := r.Page(1).GetPlainText(nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "Review incidents") {
		t.Fatalf("expected objective in page text, got %q", text)
	}
}
