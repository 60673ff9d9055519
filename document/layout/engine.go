package layout

import (
	"fmt"
)

// Options configures an Engine. Zero values fall back to Letter, DefaultMargins and
// core font metrics.
type Options struct {
	Size     Size
	Margins  Margins
	Measurer Measurer
}

// PageHook draws recurring content at the top of a freshly started page and returns
// the cursor below it.
type PageHook func(e *Engine, c Cursor) (Cursor, error)

// Block is a unit of content that is never split across pages. Op coordinates use
// absolute X and a Y relative to the top of the block.
type Block struct {
	Height float64
	Ops    []Op
}

// Engine places content onto pages. Pages are buffered in memory until Finalize so
// the total page count is known when footers are drawn. The write position is an
// explicit Cursor threaded through every call.
type Engine struct {
	size      Size
	margins   Margins
	measurer  Measurer
	pages     []Page
	hooks     []PageHook
	table     *Table
	freshY    float64
	finalized bool
}

// New creates an Engine with no pages. Call Begin to start the first page.
func New(opts Options) *Engine {
	if opts.Size.W <= 0 || opts.Size.H <= 0 {
		opts.Size = Letter
	}
	if opts.Margins == (Margins{}) {
		opts.Margins = DefaultMargins
	}
	if opts.Measurer == nil {
		opts.Measurer = NewFontMetrics()
	}
	return &Engine{size: opts.Size, margins: opts.Margins, measurer: opts.Measurer}
}

// OnPageStart registers a hook that runs every time a page is started, including the first.
func (e *Engine) OnPageStart(h PageHook) {
	e.hooks = append(e.hooks, h)
}

// Begin starts the first page.
func (e *Engine) Begin() (Cursor, error) {
	if e.finalized {
		return Cursor{}, ErrFinalized
	}
	if len(e.pages) > 0 {
		return Cursor{Page: len(e.pages) - 1, Y: e.freshY}, nil
	}
	return e.startPage()
}

func (e *Engine) Size() Size             { return e.size }
func (e *Engine) Measurer() Measurer     { return e.measurer }
func (e *Engine) Left() float64          { return e.margins.Left }
func (e *Engine) Right() float64         { return e.size.W - e.margins.Right }
func (e *Engine) Top() float64           { return e.margins.Top }
func (e *Engine) Bottom() float64        { return e.size.H - e.margins.Bottom }
func (e *Engine) ContentWidth() float64  { return e.Right() - e.Left() }
func (e *Engine) ContentHeight() float64 { return e.Bottom() - e.Top() }

// PageCount returns the number of pages started so far.
func (e *Engine) PageCount() int {
	return len(e.pages)
}

// Fits reports whether h points of content fit below c on the current page.
func (e *Engine) Fits(c Cursor, h float64) bool {
	return c.Y+h <= e.Bottom()+epsilon
}

// BreakPage starts a new page, runs page hooks and repeats the header of an open table.
func (e *Engine) BreakPage(c Cursor) (Cursor, error) {
	if e.finalized {
		return c, ErrFinalized
	}
	return e.startPage()
}

func (e *Engine) startPage() (Cursor, error) {
	e.pages = append(e.pages, Page{Number: len(e.pages) + 1})
	c := Cursor{Page: len(e.pages) - 1, Y: e.Top()}
	for _, h := range e.hooks {
		next, err := h(e, c)
		if err != nil {
			return c, fmt.Errorf("page %d hook: %w", c.Page+1, err)
		}
		c = next
	}
	e.freshY = c.Y
	if e.table != nil {
		next, err := e.drawTableHeader(c, e.table)
		if err != nil {
			return c, err
		}
		c = next
	}
	e.freshY = c.Y
	return c, nil
}

// PlaceBlock places b at c, breaking to a new page first when it does not fit.
func (e *Engine) PlaceBlock(c Cursor, b Block) (Cursor, error) {
	if e.finalized {
		return c, ErrFinalized
	}
	if err := e.checkCursor(c); err != nil {
		return c, err
	}
	if !e.Fits(c, b.Height) {
		if c.Y <= e.freshY+epsilon {
			return c, fmt.Errorf("%w: %.1fpt", ErrBlockTooTall, b.Height)
		}
		next, err := e.BreakPage(c)
		if err != nil {
			return c, err
		}
		c = next
		if !e.Fits(c, b.Height) {
			return c, fmt.Errorf("%w: %.1fpt", ErrBlockTooTall, b.Height)
		}
	}
	e.draw(c, b.Ops)
	return Cursor{Page: c.Page, Y: c.Y + b.Height}, nil
}

// Draw appends ops at absolute coordinates to the page under c without any fit
// check. Used by page hooks.
func (e *Engine) Draw(c Cursor, ops ...Op) error {
	if e.finalized {
		return ErrFinalized
	}
	if err := e.checkCursor(c); err != nil {
		return err
	}
	e.pages[c.Page].Ops = append(e.pages[c.Page].Ops, ops...)
	return nil
}

// draw appends block-relative ops translated to c.Y.
func (e *Engine) draw(c Cursor, ops []Op) {
	page := &e.pages[c.Page]
	for _, op := range ops {
		op.Y += c.Y
		if op.Kind == OpLine {
			op.Y2 += c.Y
		}
		page.Ops = append(page.Ops, op)
	}
}

// Advance moves the cursor down by h. It never crosses the bottom margin; the next
// placement breaks the page instead.
func (e *Engine) Advance(c Cursor, h float64) Cursor {
	c.Y += h
	if c.Y > e.Bottom() {
		c.Y = e.Bottom()
	}
	return c
}

func (e *Engine) checkCursor(c Cursor) error {
	if c.Page < 0 || c.Page >= len(e.pages) {
		return fmt.Errorf("layout: cursor page %d out of range (have %d)", c.Page, len(e.pages))
	}
	return nil
}

// Text describes a wrapped run of text.
type Text struct {
	Text       string
	Font       Font
	Align      Align
	Indent     float64
	Width      float64 // 0 means the content width minus Indent
	Color      Color
	SpaceAfter float64
}

// PlaceText wraps t and places it line by line, breaking pages between lines.
func (e *Engine) PlaceText(c Cursor, t Text) (Cursor, error) {
	if t.Font.Size <= 0 {
		t.Font = Body
	}
	width := t.Width
	if width <= 0 {
		width = e.ContentWidth() - t.Indent
	}
	x := e.Left() + t.Indent
	for _, line := range e.measurer.WrapText(t.Text, width, t.Font) {
		op := e.TextOp(x, 0, width, line, t.Font, t.Align)
		op.Color = t.Color
		next, err := e.PlaceBlock(c, Block{Height: t.Font.LineHeight(), Ops: []Op{op}})
		if err != nil {
			return c, err
		}
		c = next
	}
	return e.Advance(c, t.SpaceAfter), nil
}

// TextOp builds a single-line text op inside a box starting at x with width w. y is
// the top of the line box.
func (e *Engine) TextOp(x, y, w float64, text string, font Font, align Align) Op {
	switch align {
	case AlignCenter:
		x += (w - e.measurer.TextWidth(text, font)) / 2
	case AlignRight:
		x += w - e.measurer.TextWidth(text, font)
	}
	return Op{Kind: OpText, X: x, Y: y + font.ascent(), Text: text, Font: font}
}

// LineOp builds a stroked line.
func LineOp(x1, y1, x2, y2, width float64) Op {
	return Op{Kind: OpLine, X: x1, Y: y1, X2: x2, Y2: y2, LineWidth: width, Stroke: true}
}

// RectOp builds a rectangle; fill paints it with color, otherwise it is stroked.
func RectOp(x, y, w, h float64, fill bool, color Color) Op {
	return Op{Kind: OpRect, X: x, Y: y, W: w, H: h, Fill: fill, Stroke: !fill, Color: color, LineWidth: 0.5}
}

// ImageOp builds an image op; imageType is "PNG" or "JPG".
func ImageOp(x, y, w, h float64, data []byte, imageType string) Op {
	return Op{Kind: OpImage, X: x, Y: y, W: w, H: h, Image: data, ImageType: imageType}
}

const epsilon = 0.001
