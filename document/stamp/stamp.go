// Package stamp places a visual signature on the last page of an existing PDF.
//
// The original bytes are never rewritten. The stamp is appended as an incremental
// update: a new version of the last page object that draws the original content
// followed by the signature image, a separator line and three lines of text.
package stamp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrInvalidPDF is returned when the source document cannot be parsed.
	ErrInvalidPDF = errors.New("stamp: invalid PDF")
	// ErrEncryptedPDF is returned for encrypted source documents.
	ErrEncryptedPDF = errors.New("stamp: encrypted PDF not supported")
	// ErrUnsupportedImage is returned when the signature is not a PNG, JPEG, GIF or WebP image.
	ErrUnsupportedImage = errors.New("stamp: unsupported signature image")
)

// TimestampLayout formats the signing time printed under the signature.
const TimestampLayout = "02/01/2006 15:04"

// Signer identifies who signed and when.
type Signer struct {
	Name     string
	Title    string
	SignedAt time.Time
}

// Options controls stamp geometry. Offsets are in points from the bottom-right
// corner of the visible page box.
type Options struct {
	Scale        float64
	RightOffset  float64
	BottomOffset float64
	Location     *time.Location
}

// DefaultOptions stamps at 40% of the image's pixel size, 50pt from the right edge
// and 120pt from the bottom.
var DefaultOptions = Options{Scale: 0.4, RightOffset: 50, BottomOffset: 120}

const (
	minTextWidth = 150.0
	titleSize    = 8.0
	nameSize     = 8.0
	timeSize     = 7.0
	// Helvetica average glyph advance relative to the font size, used to widen
	// the text block for long names.
	avgGlyph = 0.5
)

// Stamper applies signatures with fixed options.
type Stamper struct {
	opts Options
}

// New returns a Stamper; zero option fields take their DefaultOptions value.
func New(opts Options) *Stamper {
	if opts.Scale <= 0 {
		opts.Scale = DefaultOptions.Scale
	}
	if opts.RightOffset <= 0 {
		opts.RightOffset = DefaultOptions.RightOffset
	}
	if opts.BottomOffset <= 0 {
		opts.BottomOffset = DefaultOptions.BottomOffset
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Stamper{opts: opts}
}

// Stamp returns original with the signature drawn on its last page. The page
// count never changes.
func (s *Stamper) Stamp(ctx context.Context, original, signature []byte, signer Signer) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := loadImage(signature)
	if err != nil {
		return nil, err
	}
	src, err := openSource(original)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return src.appendStamp(img, s.content(src.box, src.names, img, signer))
}

// Stamp signs with DefaultOptions in the local time zone.
func Stamp(ctx context.Context, original, signature []byte, signer Signer) ([]byte, error) {
	return New(Options{}).Stamp(ctx, original, signature, signer)
}

// content builds the stamp's drawing operators in page space.
func (s *Stamper) content(box [4]float64, names resourceNames, img *signatureImage, signer Signer) []byte {
	pageW := box[2] - box[0]
	w := float64(img.Width) * s.opts.Scale
	h := float64(img.Height) * s.opts.Scale
	if limit := pageW - 2*s.opts.RightOffset; w > limit && limit > 0 {
		h *= limit / w
		w = limit
	}
	if limit := s.opts.BottomOffset * 2; h > limit {
		w *= limit / h
		h = limit
	}

	title := encodeText(signer.Title)
	name := encodeText(signer.Name)
	when := signer.SignedAt
	if when.IsZero() {
		when = time.Now()
	}
	stamp := encodeText(when.In(s.opts.Location).Format(TimestampLayout))

	blockW := max(w, minTextWidth, float64(len(name))*nameSize*avgGlyph, float64(len(title))*titleSize*avgGlyph)
	right := box[2] - s.opts.RightOffset
	left := right - blockW
	bottom := box[1] + s.opts.BottomOffset
	lineY := bottom - 4

	var b bytes.Buffer
	b.WriteString("Q\nq\n")
	fmt.Fprintf(&b, "q %s 0 0 %s %s %s cm /%s Do Q\n", num(w), num(h), num(right-w), num(bottom), names.image)
	fmt.Fprintf(&b, "0 G 0.75 w %s %s m %s %s l S\n", num(left), num(lineY), num(right), num(lineY))
	b.WriteString("0 g BT\n")
	fmt.Fprintf(&b, "/%s %s Tf 1 0 0 1 %s %s Tm (%s) Tj\n", names.bold, num(titleSize), num(left), num(lineY-titleSize-2), escapeLiteral(title))
	fmt.Fprintf(&b, "/%s %s Tf 1 0 0 1 %s %s Tm (%s) Tj\n", names.regular, num(nameSize), num(left), num(lineY-titleSize-nameSize-4), escapeLiteral(name))
	fmt.Fprintf(&b, "/%s %s Tf 1 0 0 1 %s %s Tm (%s) Tj\n", names.regular, num(timeSize), num(left), num(lineY-titleSize-nameSize-timeSize-6), escapeLiteral(stamp))
	b.WriteString("ET\nQ\n")
	return b.Bytes()
}

// encodeText converts text for the WinAnsi-encoded standard fonts. Characters
// outside Windows-1252 print as '?'.
func encodeText(s string) []byte {
	s = strings.Join(strings.Fields(s), " ")
	out := make([]byte, 0, len(s))
	for _, r := range s {
		c, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			c = '?'
		}
		out = append(out, c)
	}
	return out
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
