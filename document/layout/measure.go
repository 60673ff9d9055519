package layout

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
)

// Measurer computes text extents for a given font.
type Measurer interface {
	TextWidth(text string, font Font) float64
	WrapText(text string, width float64, font Font) []string
	MeasureText(text string, width float64, font Font) float64
}

// FontMetrics measures text with the PDF core font metrics shipped with fpdf.
// Text is translated to cp1252 before measuring, which matches how it is written.
type FontMetrics struct {
	mu  sync.Mutex
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// NewFontMetrics builds a Measurer backed by core font metrics.
func NewFontMetrics() *FontMetrics {
	pdf := fpdf.New("P", "pt", "Letter", "")
	return &FontMetrics{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

// TextWidth returns the rendered width of a single line.
func (m *FontMetrics) TextWidth(text string, font Font) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdf.SetFont(fontFamily(font), font.Style, font.Size)
	return m.pdf.GetStringWidth(m.tr(text))
}

// WrapText greedily wraps text into lines no wider than width. Explicit newlines are
// kept and words wider than the column are broken by character. Always returns at
// least one line.
func (m *FontMetrics) WrapText(text string, width float64, font Font) []string {
	return wrap(text, width, func(s string) float64 { return m.TextWidth(s, font) })
}

// MeasureText returns the height of text wrapped to width.
func (m *FontMetrics) MeasureText(text string, width float64, font Font) float64 {
	return float64(len(m.WrapText(text, width, font))) * font.LineHeight()
}

func wrap(text string, width float64, measure func(string) float64) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, word := range words {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if measure(candidate) <= width {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			if measure(word) <= width {
				line = word
				continue
			}
			pieces := breakWord(word, width, measure)
			lines = append(lines, pieces[:len(pieces)-1]...)
			line = pieces[len(pieces)-1]
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

// breakWord splits a word that does not fit width into chunks that do. A chunk holds
// at least one rune so very narrow columns still make progress.
func breakWord(word string, width float64, measure func(string) float64) []string {
	var out []string
	for word != "" {
		end := 0
		for i := range word {
			if i == 0 {
				continue
			}
			if measure(word[:i]) > width {
				break
			}
			end = i
		}
		if measure(word) <= width {
			end = len(word)
		}
		if end == 0 {
			_, size := utf8.DecodeRuneInString(word)
			end = size
		}
		out = append(out, word[:end])
		word = word[end:]
	}
	return out
}

func fontFamily(f Font) string {
	if f.Family == "" {
		return "Helvetica"
	}
	return f.Family
}
