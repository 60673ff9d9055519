package render

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"sst-backend/document/layout"
	"sst-backend/document/model"
)

const (
	logoCellWidth = 110.0
	metaCellWidth = 150.0
	cellPadding   = 6.0
	minHeaderH    = 60.0
	sectionGap    = 8.0
)

var (
	titleFont   = layout.Body.Bold().WithSize(12)
	metaFont    = layout.Body.WithSize(8)
	sectionFont = layout.Body.Bold().WithSize(10)
	captionFont = layout.Body.WithSize(8)
)

// drawHeader places the three-cell document header: logo, title and the
// code/version/date metadata column.
func drawHeader(e *layout.Engine, c layout.Cursor, h model.Header) (layout.Cursor, error) {
	m := e.Measurer()
	x0 := e.Left()
	titleW := e.ContentWidth() - logoCellWidth - metaCellWidth

	titleLines := m.WrapText(strings.ToUpper(h.Title), titleW-2*cellPadding, titleFont)
	meta := [][]string{
		m.WrapText("Code: "+h.Code, metaCellWidth-8, metaFont),
		m.WrapText("Version: "+h.Version, metaCellWidth-8, metaFont),
		m.WrapText("Emission date: "+h.EmissionDate, metaCellWidth-8, metaFont),
		m.WrapText("Revision date: "+h.RevisionDate, metaCellWidth-8, metaFont),
	}
	metaH := 0.0
	for _, lines := range meta {
		metaH += float64(len(lines))*metaFont.LineHeight() + 4
	}
	height := math.Max(minHeaderH, float64(len(titleLines))*titleFont.LineHeight()+2*cellPadding)
	height = math.Max(height, metaH)

	ops := []layout.Op{
		layout.RectOp(x0, 0, logoCellWidth, height, false, layout.Black),
		layout.RectOp(x0+logoCellWidth, 0, titleW, height, false, layout.Black),
		layout.RectOp(x0+logoCellWidth+titleW, 0, metaCellWidth, height, false, layout.Black),
	}
	ops = append(ops, logoOps(e, x0, height, h)...)

	ty := (height - float64(len(titleLines))*titleFont.LineHeight()) / 2
	for i, line := range titleLines {
		ops = append(ops, e.TextOp(x0+logoCellWidth+cellPadding, ty+float64(i)*titleFont.LineHeight(), titleW-2*cellPadding, line, titleFont, layout.AlignCenter))
	}

	// Rows grow with their wrapped line count; spare height is shared evenly.
	mx := x0 + logoCellWidth + titleW
	extra := (height - metaH) / float64(len(meta))
	top := 0.0
	for i, lines := range meta {
		rowH := float64(len(lines))*metaFont.LineHeight() + 4 + extra
		if i > 0 {
			ops = append(ops, layout.LineOp(mx, top, mx+metaCellWidth, top, 0.5))
		}
		ty := top + (rowH-float64(len(lines))*metaFont.LineHeight())/2
		for j, line := range lines {
			ops = append(ops, e.TextOp(mx+4, ty+float64(j)*metaFont.LineHeight(), metaCellWidth-8, line, metaFont, layout.AlignLeft))
		}
		top += rowH
	}

	c, err := e.PlaceBlock(c, layout.Block{Height: height, Ops: ops})
	if err != nil {
		return c, err
	}
	return e.Advance(c, sectionGap), nil
}

// logoOps fits the logo into the first header cell, or prints the organization
// name when no usable image is configured.
func logoOps(e *layout.Engine, x0, height float64, h model.Header) []layout.Op {
	if typ := imageType(h.Logo); typ != "" {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(h.Logo)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
			boxW, boxH := logoCellWidth-2*cellPadding, height-2*cellPadding
			scale := math.Min(boxW/float64(cfg.Width), boxH/float64(cfg.Height))
			w, hh := float64(cfg.Width)*scale, float64(cfg.Height)*scale
			return []layout.Op{layout.ImageOp(x0+(logoCellWidth-w)/2, (height-hh)/2, w, hh, h.Logo, typ)}
		}
	}
	if strings.TrimSpace(h.Organization) == "" {
		return nil
	}
	font := captionFont.Bold()
	lines := e.Measurer().WrapText(h.Organization, logoCellWidth-2*cellPadding, font)
	top := (height - float64(len(lines))*font.LineHeight()) / 2
	ops := make([]layout.Op, 0, len(lines))
	for i, line := range lines {
		ops = append(ops, e.TextOp(x0+cellPadding, top+float64(i)*font.LineHeight(), logoCellWidth-2*cellPadding, line, font, layout.AlignCenter))
	}
	return ops
}

// imageType maps image bytes to the fpdf image type, or "" when unsupported.
func imageType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	switch mimetype.Detect(data).String() {
	case "image/png":
		return "PNG"
	case "image/jpeg":
		return "JPG"
	default:
		return ""
	}
}

// runningHeader prints a compact title line on every page after the first.
func runningHeader(h model.Header) layout.PageHook {
	return func(e *layout.Engine, c layout.Cursor) (layout.Cursor, error) {
		if c.Page == 0 {
			return c, nil
		}
		font := captionFont
		ops := []layout.Op{
			e.TextOp(e.Left(), 0, e.ContentWidth(), h.Title, font.Bold(), layout.AlignLeft),
			e.TextOp(e.Left(), 0, e.ContentWidth(), h.Code+" v"+h.Version, font, layout.AlignRight),
			layout.LineOp(e.Left(), font.LineHeight()+2, e.Right(), font.LineHeight()+2, 0.5),
		}
		next, err := e.PlaceBlock(c, layout.Block{Height: font.LineHeight() + 2, Ops: ops})
		if err != nil {
			return c, err
		}
		return e.Advance(next, sectionGap), nil
	}
}

// sectionTitle draws a shaded caption band. It moves to the next page together with
// at least one line of the content that follows it.
func sectionTitle(e *layout.Engine, c layout.Cursor, title string) (layout.Cursor, error) {
	h := sectionFont.LineHeight() + 6
	if !e.Fits(c, h+2*layout.Body.LineHeight()) {
		next, err := e.BreakPage(c)
		if err != nil {
			return c, err
		}
		c = next
	}
	ops := []layout.Op{
		layout.RectOp(e.Left(), 0, e.ContentWidth(), h, true, layout.LightGray),
		e.TextOp(e.Left()+4, 3, e.ContentWidth()-8, title, sectionFont, layout.AlignLeft),
	}
	next, err := e.PlaceBlock(c, layout.Block{Height: h, Ops: ops})
	if err != nil {
		return c, err
	}
	return e.Advance(next, 4), nil
}

// paragraph places wrapped body text followed by a section gap.
func paragraph(e *layout.Engine, c layout.Cursor, text string) (layout.Cursor, error) {
	return e.PlaceText(c, layout.Text{Text: text, Font: layout.Body, SpaceAfter: sectionGap})
}

// signatureBlocks places up to two signature blocks side by side and keeps them
// on one page.
func signatureBlocks(e *layout.Engine, c layout.Cursor, signers []model.Signatory) (layout.Cursor, error) {
	if len(signers) == 0 {
		return c, nil
	}
	const (
		gap       = 40.0
		signSpace = 40.0
	)
	nameFont := layout.Body.Bold()
	width := (e.ContentWidth() - gap) / 2
	height := signSpace + 4 + nameFont.LineHeight() + captionFont.LineHeight()

	var ops []layout.Op
	for i, s := range signers {
		if i > 1 {
			break
		}
		x := e.Left() + float64(i)*(width+gap)
		ops = append(ops,
			layout.LineOp(x, signSpace, x+width, signSpace, 0.75),
			e.TextOp(x, signSpace+4, width, s.Name, nameFont, layout.AlignCenter),
			e.TextOp(x, signSpace+4+nameFont.LineHeight(), width, s.Role, captionFont, layout.AlignCenter),
		)
	}
	c = e.Advance(c, sectionGap)
	return e.PlaceBlock(c, layout.Block{Height: height, Ops: ops})
}
