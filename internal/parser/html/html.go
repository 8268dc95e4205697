// Package html imports HTML into the block document model and exports a
// paginated document back to HTML with its page markers.
package html

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gompdf/pageflow/internal/document"
	"github.com/gompdf/pageflow/internal/parser/css"
)

// Class names of the exported page scaffolding. Elements carrying them are
// skipped on import, so an exported document imports back unchanged.
const (
	ClassDivider = "pdf-page-divider"
	ClassFooter  = "page-footer"
	ClassHeader  = "page-header"
	ClassFill    = "page-fill"
	ClassGap     = "page-gap"
	ClassNoPrint = "no-print"
)

// Parser represents an HTML parser
type Parser struct{}

// Parsed is an imported HTML document.
type Parsed struct {
	Doc *document.Document
	// Styles holds the contents of every <style> element.
	Styles []*css.Stylesheet
}

// NewParser creates a new HTML parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseString parses HTML from a string
func (p *Parser) ParseString(content string) (*Parsed, error) {
	return p.Parse(strings.NewReader(content))
}

// Parse parses HTML from an io.Reader
func (p *Parser) Parse(r io.Reader) (*Parsed, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	b := &builder{out: &Parsed{Doc: document.New()}}
	b.walk(root, 0)
	b.flushInline()
	return b.out, nil
}

type builder struct {
	out    *Parsed
	inline strings.Builder
}

func (b *builder) add(blk *document.Block) {
	b.flushInline()
	b.out.Doc.Blocks = append(b.out.Doc.Blocks, blk)
}

// flushInline turns loose inline content between blocks into a paragraph.
func (b *builder) flushInline() {
	s := collapse(b.inline.String())
	b.inline.Reset()
	if s != "" {
		b.out.Doc.Blocks = append(b.out.Doc.Blocks, document.NewParagraph(s))
	}
}

func (b *builder) walk(n *html.Node, listDepth int) {
	switch n.Type {
	case html.TextNode:
		b.inline.WriteString(n.Data)
		return
	case html.ElementNode:
		if skipped(n) {
			return
		}
		if b.element(n, listDepth) {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c, listDepth)
	}
}

// element handles block-level elements. It reports false for containers
// whose children should be walked.
func (b *builder) element(n *html.Node, listDepth int) bool {
	switch n.DataAtom {
	case atom.Head:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			b.head(c)
		}
		return true
	case atom.Style:
		b.out.Styles = append(b.out.Styles, css.ParseString(textOf(n, true)))
		return true
	case atom.Script, atom.Noscript, atom.Template:
		return true
	case atom.P:
		b.add(document.NewParagraph(collapse(textOf(n, false))))
		return true
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level, _ := strconv.Atoi(n.Data[1:])
		b.add(document.NewHeading(level, collapse(textOf(n, false))))
		return true
	case atom.Pre:
		b.add(document.NewTextblock(document.KindCodeBlock, strings.TrimSuffix(textOf(n, true), "\n")))
		return true
	case atom.Blockquote:
		b.add(document.NewTextblock(document.KindBlockquote, collapse(textOf(n, false))))
		return true
	case atom.Ul, atom.Ol:
		b.flushInline()
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Li {
				b.listItem(c, listDepth+1, n.DataAtom == atom.Ol)
			}
		}
		return true
	case atom.Li:
		b.listItem(n, listDepth+1, false)
		return true
	case atom.Hr:
		b.add(&document.Block{Kind: document.KindRule})
		return true
	case atom.Table:
		b.add(table(n))
		return true
	case atom.Img:
		b.add(image(n))
		return true
	case atom.Br:
		b.inline.WriteString(hardBreak)
		return true
	case atom.Div, atom.Section, atom.Article, atom.Main, atom.Header, atom.Footer, atom.Nav, atom.Aside, atom.Body, atom.Html:
		b.flushInline()
		return false
	}
	return false
}

func (b *builder) head(n *html.Node) {
	if n.Type != html.ElementNode {
		return
	}
	switch n.DataAtom {
	case atom.Title:
		b.out.Doc.Title = collapse(textOf(n, false))
	case atom.Style:
		b.out.Styles = append(b.out.Styles, css.ParseString(textOf(n, true)))
	}
}

// listItem adds the item's own text; nested lists become deeper items.
func (b *builder) listItem(li *html.Node, depth int, ordered bool) {
	var own strings.Builder
	var nested []*html.Node
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Ul || c.DataAtom == atom.Ol) {
			nested = append(nested, c)
			continue
		}
		own.WriteString(textOf(c, false))
	}
	if lv, err := strconv.Atoi(attr(li, "data-level")); err == nil && lv > 0 {
		depth = lv
	}
	blk := document.NewTextblock(document.KindListItem, collapse(own.String()))
	blk.Level = depth
	blk.Ordered = ordered
	b.add(blk)
	for _, list := range nested {
		b.walk(list, depth)
	}
}

func table(n *html.Node) *document.Block {
	blk := &document.Block{Kind: document.KindTable}
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom != atom.Tr {
				visit(c)
				continue
			}
			var row []string
			for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
				if cell.DataAtom == atom.Td || cell.DataAtom == atom.Th {
					row = append(row, collapse(textOf(cell, false)))
				}
			}
			blk.Rows = append(blk.Rows, row)
		}
	}
	visit(n)
	return blk
}

func image(n *html.Node) *document.Block {
	blk := &document.Block{
		Kind: document.KindImage,
		Src:  attr(n, "src"),
		Alt:  attr(n, "alt"),
	}
	if h, err := strconv.ParseFloat(strings.TrimSuffix(attr(n, "height"), "px"), 64); err == nil && h > 0 {
		blk.Height = h
	}
	return blk
}

func skipped(n *html.Node) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		switch c {
		case ClassDivider, ClassFooter, ClassHeader, ClassFill, ClassGap, ClassNoPrint:
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textOf returns the text below n. Outside preformatted text <br> becomes a
// hard break.
func textOf(n *html.Node, pre bool) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br && !pre:
			sb.WriteString(hardBreak)
		case n.Type == html.ElementNode && skipped(n):
		default:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				visit(c)
			}
		}
	}
	visit(n)
	return sb.String()
}

// hardBreak marks a <br> while text is collected, apart from source
// newlines.
const hardBreak = "\u2028"

// collapse folds whitespace runs into single spaces while keeping hard
// breaks.
func collapse(s string) string {
	lines := strings.Split(s, hardBreak)
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
