package layout

import "errors"

// Size is a page size in points.
type Size struct {
	W float64
	H float64
}

// Letter is US Letter, 612x792 pt.
var Letter = Size{W: 612, H: 792}

// Margins are page margins in points. The footer band lives below Bottom.
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// DefaultMargins are the margins used by every document profile.
var DefaultMargins = Margins{Top: 40, Right: 40, Bottom: 50, Left: 40}

// Font selects one of the PDF core fonts.
type Font struct {
	Family string
	Style  string // "", "B", "I" or "BI"
	Size   float64
}

// LineHeight is the vertical advance of one line set in f.
func (f Font) LineHeight() float64 {
	return f.Size * 1.25
}

// ascent approximates the distance from the top of a line box to its baseline.
func (f Font) ascent() float64 {
	return f.Size * 0.925
}

// Bold returns a copy of f with bold style.
func (f Font) Bold() Font {
	f.Style = "B"
	return f
}

// WithSize returns a copy of f at the given size.
func (f Font) WithSize(size float64) Font {
	f.Size = size
	return f
}

// Body is the default body font.
var Body = Font{Family: "Helvetica", Size: 9}

// Align controls horizontal text placement.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Color is an RGB colour.
type Color struct {
	R, G, B uint8
}

var (
	Black     = Color{}
	LightGray = Color{R: 230, G: 230, B: 230}
	MidGray   = Color{R: 120, G: 120, B: 120}
)

// Cursor is the current write position: a 0-based page index and a top-down Y offset.
type Cursor struct {
	Page int
	Y    float64
}

// OpKind identifies a buffered draw operation.
type OpKind int

const (
	OpText OpKind = iota + 1
	OpLine
	OpRect
	OpImage
)

// Op is a single buffered draw operation in absolute page coordinates.
//
// Text: X,Y is the baseline origin. Line: X,Y to X2,Y2. Rect and Image: X,Y is the
// top-left corner with size W,H.
type Op struct {
	Kind      OpKind
	X, Y      float64
	X2, Y2    float64
	W, H      float64
	Text      string
	Font      Font
	Color     Color
	Fill      bool
	Stroke    bool
	LineWidth float64
	Image     []byte
	ImageType string // "PNG" or "JPG"
}

// Page is the buffered content of one page.
type Page struct {
	Number int
	Ops    []Op
}

// Texts returns every text string drawn on the page, in draw order.
func (p Page) Texts() []string {
	var out []string
	for _, op := range p.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

var (
	// ErrFinalized is returned when content is placed after Finalize.
	ErrFinalized = errors.New("layout: document already finalized")
	// ErrBlockTooTall is returned for a block that cannot fit on an empty page.
	ErrBlockTooTall = errors.New("layout: block taller than page content area")
	// ErrInvalidTable is returned for tables without columns or with mismatched rows.
	ErrInvalidTable = errors.New("layout: invalid table")
)
