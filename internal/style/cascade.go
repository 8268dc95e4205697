package style

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gompdf/pageflow/internal/document"
	"github.com/gompdf/pageflow/internal/parser/css"
)

// Source represents the origin of a declaration
type Source int

const (
	SourceUserAgent Source = iota
	SourceAuthor
)

// BlockStyle is the computed style of one top-level block.
type BlockStyle struct {
	FontFamily string
	Bold       bool
	Italic     bool
	// FontSize and LineHeight are in pixels.
	FontSize   float64
	LineHeight float64
	PadTop     float64
	PadBottom  float64
	// Indent is the left padding of the text column.
	Indent float64
	// Height fixes the box height of atomic blocks; 0 means intrinsic.
	Height float64
}

type property struct {
	value     string
	important bool
	source    Source
}

// StyleEngine resolves block styles from the user agent sheet and any author
// sheets, by element name
type StyleEngine struct {
	userAgentStyles *css.Stylesheet
	authorStyles    []*css.Stylesheet

	mu    sync.Mutex
	cache map[string]BlockStyle
}

// NewStyleEngine creates a new style engine
func NewStyleEngine() *StyleEngine {
	return &StyleEngine{
		userAgentStyles: defaultUserAgentStyles(),
		cache:           make(map[string]BlockStyle),
	}
}

// AddStylesheet adds an author stylesheet to the style engine
func (e *StyleEngine) AddStylesheet(stylesheet *css.Stylesheet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.authorStyles = append(e.authorStyles, stylesheet)
	clear(e.cache)
}

// ForBlock returns the computed style of b.
func (e *StyleEngine) ForBlock(b *document.Block) BlockStyle {
	return e.For(Tag(b))
}

// For returns the computed style of the element named tag.
func (e *StyleEngine) For(tag string) BlockStyle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.cache[tag]; ok {
		return s
	}

	props := make(map[string]property)
	e.applyStylesheet(props, tag, e.userAgentStyles, SourceUserAgent)
	for _, sheet := range e.authorStyles {
		e.applyStylesheet(props, tag, sheet, SourceAuthor)
	}
	s := compute(props)
	e.cache[tag] = s
	return s
}

// applyStylesheet applies the matching rules of a stylesheet in order; a
// later rule wins unless the earlier declaration is !important.
func (e *StyleEngine) applyStylesheet(props map[string]property, tag string, sheet *css.Stylesheet, source Source) {
	for _, rule := range sheet.Rules {
		if !rule.Matches(tag) {
			continue
		}
		for _, decl := range rule.Declarations {
			existing, exists := props[decl.Property]
			if exists && existing.important && !decl.Important {
				continue
			}
			props[decl.Property] = property{value: decl.Value, important: decl.Important, source: source}
		}
	}
}

func compute(props map[string]property) BlockStyle {
	s := BlockStyle{FontFamily: "Helvetica", FontSize: 16}
	if p, ok := props["font-size"]; ok {
		if v, err := parseLength(p.value, s.FontSize); err == nil && v > 0 {
			s.FontSize = v
		}
	}
	s.LineHeight = s.FontSize * 1.5
	if p, ok := props["line-height"]; ok {
		if f, err := strconv.ParseFloat(p.value, 64); err == nil && f > 0 {
			s.LineHeight = f * s.FontSize
		} else if v, err := parseLength(p.value, s.FontSize); err == nil && v > 0 {
			s.LineHeight = v
		}
	}
	if p, ok := props["font-family"]; ok {
		s.FontFamily = fontFamily(p.value)
	}
	if p, ok := props["font-weight"]; ok {
		w, err := strconv.Atoi(p.value)
		s.Bold = p.value == "bold" || p.value == "bolder" || err == nil && w >= 600
	}
	if p, ok := props["font-style"]; ok {
		s.Italic = p.value == "italic" || p.value == "oblique"
	}

	lengths := map[string]*float64{
		"padding-top":    &s.PadTop,
		"padding-bottom": &s.PadBottom,
		"padding-left":   &s.Indent,
		"height":         &s.Height,
	}
	for name, dst := range lengths {
		if p, ok := props[name]; ok {
			if v, err := parseLength(p.value, s.FontSize); err == nil && v >= 0 {
				*dst = v
			}
		}
	}
	return s
}

// fontFamily maps a font-family list onto the core PDF fonts.
func fontFamily(value string) string {
	for _, name := range strings.Split(value, ",") {
		name = strings.ToLower(strings.Trim(strings.TrimSpace(name), `"'`))
		switch name {
		case "courier", "courier new", "monospace":
			return "Courier"
		case "times", "times new roman", "serif":
			return "Times"
		case "helvetica", "arial", "sans-serif":
			return "Helvetica"
		}
	}
	return "Helvetica"
}

// parseLength converts a CSS length to pixels. Unitless values are pixels.
func parseLength(value string, fontSize float64) (float64, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	units := []struct {
		suffix   string
		mul, div float64
	}{
		{"px", 1, 1},
		{"pt", 96, 72},
		{"in", 96, 1},
		{"cm", 96, 2.54},
		{"mm", 96, 25.4},
		{"rem", 16, 1},
		{"em", fontSize, 1},
	}
	for _, u := range units {
		if num, ok := strings.CutSuffix(value, u.suffix); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
			if err != nil {
				return 0, fmt.Errorf("invalid length %q: %w", value, err)
			}
			return f * u.mul / u.div, nil
		}
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q: %w", value, err)
	}
	return f, nil
}

// Tag returns the element name that styles a block.
func Tag(b *document.Block) string {
	switch b.Kind {
	case document.KindHeading:
		return fmt.Sprintf("h%d", b.Level)
	case document.KindListItem:
		return "li"
	case document.KindBlockquote:
		return "blockquote"
	case document.KindCodeBlock:
		return "pre"
	case document.KindRule:
		return "hr"
	case document.KindTable:
		return "td"
	case document.KindImage:
		return "img"
	}
	return "p"
}

// defaultUserAgentStyles returns the default user agent stylesheet
func defaultUserAgentStyles() *css.Stylesheet {
	return css.ParseString(`
		* { font-family: Helvetica; font-size: 16px; line-height: 24px; }
		h1 { font-size: 32px; line-height: 48px; font-weight: bold; }
		h2 { font-size: 24px; line-height: 36px; font-weight: bold; padding-top: 12px; }
		h3 { font-size: 20px; line-height: 30px; font-weight: bold; padding-top: 6px; }
		h4, h5, h6 { font-weight: bold; }
		li { padding-left: 24px; }
		blockquote { padding-left: 24px; font-style: italic; }
		pre { font-family: Courier, monospace; font-size: 14px; line-height: 24px; }
		hr { height: 24px; }
		td { padding-top: 4px; padding-bottom: 4px; }
	`)
}
