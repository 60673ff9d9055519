package layout

import (
	"fmt"
	"math"
)

// DefaultPlaceholder is drawn as the only row of a table without data.
const DefaultPlaceholder = "No data"

// Column is a table column. Widths are proportional to Weight across the content width.
type Column struct {
	Title  string
	Weight float64
	Align  Align
}

// Table is a bordered grid whose column titles repeat on every page it spans.
type Table struct {
	Columns     []Column
	Font        Font
	HeaderFont  Font
	Padding     float64
	Placeholder string

	widths []float64
	rows   int
}

// Rows returns the number of data rows placed so far.
func (t *Table) Rows() int {
	return t.rows
}

func (t *Table) prepare(contentWidth float64) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrInvalidTable)
	}
	if t.Font.Size <= 0 {
		t.Font = Body
	}
	if t.HeaderFont.Size <= 0 {
		t.HeaderFont = t.Font.Bold()
	}
	if t.Padding <= 0 {
		t.Padding = 3
	}
	if t.Placeholder == "" {
		t.Placeholder = DefaultPlaceholder
	}
	total := 0.0
	for _, col := range t.Columns {
		total += weight(col)
	}
	t.widths = make([]float64, len(t.Columns))
	for i, col := range t.Columns {
		t.widths[i] = contentWidth * weight(col) / total
	}
	return nil
}

func weight(c Column) float64 {
	if c.Weight <= 0 {
		return 1
	}
	return c.Weight
}

// BeginTable draws the column titles and marks t as the open table so a page break
// repeats them. The titles are moved to the next page when not even one body line
// fits under them.
func (e *Engine) BeginTable(c Cursor, t *Table) (Cursor, error) {
	if e.finalized {
		return c, ErrFinalized
	}
	if err := t.prepare(e.ContentWidth()); err != nil {
		return c, err
	}
	e.table = nil
	need := e.rowHeight(t, t.HeaderFont, titles(t)) + t.Font.LineHeight() + 2*t.Padding
	if !e.Fits(c, need) && c.Y > e.freshY+epsilon {
		next, err := e.BreakPage(c)
		if err != nil {
			return c, err
		}
		c = next
	}
	next, err := e.drawTableHeader(c, t)
	if err != nil {
		return c, err
	}
	e.table = t
	return next, nil
}

// PlaceTableRow places one row. Its height is the tallest wrapped cell plus padding.
// A row that does not fit moves to the next page; a row taller than a whole page is
// split across pages. The table is opened implicitly if needed.
func (e *Engine) PlaceTableRow(c Cursor, t *Table, cells []string) (Cursor, error) {
	if e.table != t {
		next, err := e.BeginTable(c, t)
		if err != nil {
			return c, err
		}
		c = next
	}
	if len(cells) > len(t.Columns) {
		return c, fmt.Errorf("%w: row has %d cells for %d columns", ErrInvalidTable, len(cells), len(t.Columns))
	}
	padded := make([]string, len(t.Columns))
	copy(padded, cells)
	aligns := make([]Align, len(t.Columns))
	for i, col := range t.Columns {
		aligns[i] = col.Align
	}
	next, err := e.placeRow(c, t, t.widths, padded, aligns, t.Font, false)
	if err != nil {
		return c, err
	}
	t.rows++
	return next, nil
}

// EndTable closes t. A table without rows gets a single placeholder row.
func (e *Engine) EndTable(c Cursor, t *Table) (Cursor, error) {
	if e.table != t {
		next, err := e.BeginTable(c, t)
		if err != nil {
			return c, err
		}
		c = next
	}
	if t.rows == 0 {
		total := 0.0
		for _, w := range t.widths {
			total += w
		}
		italic := t.Font
		italic.Style = "I"
		next, err := e.placeRow(c, t, []float64{total}, []string{t.Placeholder}, []Align{AlignCenter}, italic, false)
		if err != nil {
			return c, err
		}
		c = next
	}
	e.table = nil
	return c, nil
}

// PlaceTable places a complete table.
func (e *Engine) PlaceTable(c Cursor, t *Table, rows [][]string) (Cursor, error) {
	c, err := e.BeginTable(c, t)
	if err != nil {
		return c, err
	}
	for _, row := range rows {
		if c, err = e.PlaceTableRow(c, t, row); err != nil {
			return c, err
		}
	}
	return e.EndTable(c, t)
}

func (e *Engine) drawTableHeader(c Cursor, t *Table) (Cursor, error) {
	aligns := make([]Align, len(t.Columns))
	for i := range aligns {
		aligns[i] = AlignCenter
	}
	return e.placeRow(c, t, t.widths, titles(t), aligns, t.HeaderFont, true)
}

func titles(t *Table) []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = col.Title
	}
	return out
}

func (e *Engine) rowHeight(t *Table, font Font, cells []string) float64 {
	max := 1
	for i, cell := range cells {
		if n := len(e.measurer.WrapText(cell, cellWidth(t.widths[i], t.Padding), font)); n > max {
			max = n
		}
	}
	return float64(max)*font.LineHeight() + 2*t.Padding
}

func cellWidth(w, pad float64) float64 {
	return math.Max(w-2*pad, 1)
}

// placeRow draws bordered cells. shaded rows get a light fill and are never split.
func (e *Engine) placeRow(c Cursor, t *Table, widths []float64, cells []string, aligns []Align, font Font, shaded bool) (Cursor, error) {
	if err := e.checkCursor(c); err != nil {
		return c, err
	}
	lh := font.LineHeight()
	pad := t.Padding
	lines := make([][]string, len(cells))
	remaining := 0
	for i, cell := range cells {
		lines[i] = e.measurer.WrapText(cell, cellWidth(widths[i], pad), font)
		if len(lines[i]) > remaining {
			remaining = len(lines[i])
		}
	}

	for {
		need := float64(remaining)*lh + 2*pad
		if e.Fits(c, need) {
			e.drawRow(c, widths, lines, remaining, aligns, font, pad, shaded)
			return Cursor{Page: c.Page, Y: c.Y + need}, nil
		}
		fresh := c.Y <= e.freshY+epsilon
		if !fresh && need <= e.Bottom()-e.freshY+epsilon {
			next, err := e.BreakPage(c)
			if err != nil {
				return c, err
			}
			c = next
			continue
		}
		n := int((e.Bottom() - c.Y - 2*pad + epsilon) / lh)
		if n < 1 || shaded {
			if fresh {
				return c, fmt.Errorf("%w: table row of %.1fpt", ErrBlockTooTall, need)
			}
			next, err := e.BreakPage(c)
			if err != nil {
				return c, err
			}
			c = next
			continue
		}
		e.drawRow(c, widths, lines, n, aligns, font, pad, shaded)
		for i := range lines {
			if len(lines[i]) > n {
				lines[i] = lines[i][n:]
			} else {
				lines[i] = nil
			}
		}
		remaining -= n
		next, err := e.BreakPage(Cursor{Page: c.Page, Y: c.Y + float64(n)*lh + 2*pad})
		if err != nil {
			return c, err
		}
		c = next
	}
}

// drawRow draws the first n lines of every cell as one row slice at c.
func (e *Engine) drawRow(c Cursor, widths []float64, lines [][]string, n int, aligns []Align, font Font, pad float64, shaded bool) {
	h := float64(n)*font.LineHeight() + 2*pad
	x := e.Left()
	var ops []Op
	for i, w := range widths {
		if shaded {
			ops = append(ops, RectOp(x, 0, w, h, true, LightGray))
		}
		ops = append(ops, RectOp(x, 0, w, h, false, Black))
		for j := 0; j < n && j < len(lines[i]); j++ {
			if lines[i][j] == "" {
				continue
			}
			y := pad + float64(j)*font.LineHeight()
			ops = append(ops, e.TextOp(x+pad, y, cellWidth(w, pad), lines[i][j], font, aligns[i]))
		}
		x += w
	}
	e.draw(c, ops)
}
