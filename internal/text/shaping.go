// Package text breaks block text into lines for the layout surface.
package text

import (
	"unicode"
)

// Font describes the face and metrics used to shape a run of text.
type Font struct {
	Family string
	Bold   bool
	Italic bool
	// Size and LineHeight are in pixels.
	Size       float64
	LineHeight float64
}

// Measure returns the advance width of r in pixels.
type Measure func(r rune, font *Font) float64

// TextShaper handles text shaping operations
type TextShaper struct {
	measure Measure
}

// ShapedText is text broken into lines. Glyphs holds one entry per rune of
// Text, including spaces and hard breaks.
type ShapedText struct {
	Text       string
	Glyphs     []Glyph
	Lines      []Line
	Width      float64
	Height     float64
	LineHeight float64
}

// Glyph is a positioned rune.
type Glyph struct {
	Rune    rune
	X       float64
	Advance float64
	Line    int
}

// Line is a visual row holding the runes [Start, End).
type Line struct {
	Start int
	End   int
	Top   float64
	Width float64
}

// NewTextShaper creates a text shaper. A nil measure falls back to a fixed
// advance of 0.6em per rune.
func NewTextShaper(measure Measure) *TextShaper {
	if measure == nil {
		measure = func(r rune, font *Font) float64 { return font.Size * 0.6 }
	}
	return &TextShaper{measure: measure}
}

// ShapeText greedily wraps text at spaces so that no line is wider than
// maxWidth. A word wider than a whole line is broken between runes; a
// maxWidth of 0 only breaks at newlines. Empty text still yields one line.
func (s *TextShaper) ShapeText(text string, font *Font, maxWidth float64) *ShapedText {
	runes := []rune(text)
	lh := font.LineHeight
	if lh <= 0 {
		lh = font.Size * 1.5
	}
	shaped := &ShapedText{
		Text:       text,
		Glyphs:     make([]Glyph, len(runes)),
		LineHeight: lh,
	}

	lineStart, lastBreak := 0, -1
	closeLine := func(end int) {
		w := 0.0
		for j := lineStart; j < end; j++ {
			w += shaped.Glyphs[j].Advance
		}
		shaped.Lines = append(shaped.Lines, Line{
			Start: lineStart,
			End:   end,
			Top:   float64(len(shaped.Lines)) * lh,
			Width: w,
		})
		shaped.Width = max(shaped.Width, w)
		lineStart = end
	}

	x := 0.0
	for i, r := range runes {
		if r == '\n' {
			shaped.Glyphs[i] = Glyph{Rune: r, X: x, Line: len(shaped.Lines)}
			closeLine(i + 1)
			x, lastBreak = 0, -1
			continue
		}

		adv := s.measure(r, font)
		// Spaces may hang past the edge; anything else wraps.
		if maxWidth > 0 && x+adv > maxWidth && i > lineStart && !unicode.IsSpace(r) {
			brk := i
			if lastBreak > lineStart {
				brk = lastBreak
			}
			closeLine(brk)
			x, lastBreak = 0, -1
			for j := brk; j < i; j++ {
				shaped.Glyphs[j].X = x
				shaped.Glyphs[j].Line = len(shaped.Lines)
				x += shaped.Glyphs[j].Advance
			}
			if x+adv > maxWidth && i > lineStart {
				closeLine(i)
				x = 0
			}
		}

		shaped.Glyphs[i] = Glyph{Rune: r, X: x, Advance: adv, Line: len(shaped.Lines)}
		x += adv
		if unicode.IsSpace(r) {
			lastBreak = i + 1
		}
	}
	closeLine(len(runes))

	shaped.Height = float64(len(shaped.Lines)) * lh
	return shaped
}

// LineText returns the text of line i without its trailing hard break.
func (t *ShapedText) LineText(i int) string {
	l := t.Lines[i]
	runes := make([]rune, 0, l.End-l.Start)
	for _, g := range t.Glyphs[l.Start:l.End] {
		if g.Rune != '\n' {
			runes = append(runes, g.Rune)
		}
	}
	return string(runes)
}

// MeasureText measures text without wrapping it
func (s *TextShaper) MeasureText(text string, font *Font) (width, height float64) {
	shaped := s.ShapeText(text, font, 0)
	return shaped.Width, shaped.Height
}

// SplitTextToLines splits text into lines based on a maximum width
func (s *TextShaper) SplitTextToLines(text string, font *Font, maxWidth float64) []string {
	shaped := s.ShapeText(text, font, maxWidth)
	lines := make([]string, len(shaped.Lines))
	for i := range shaped.Lines {
		lines[i] = shaped.LineText(i)
	}
	return lines
}
