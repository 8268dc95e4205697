// Package markdown imports CommonMark (with GFM tables) into the block
// document model.
package markdown

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/gompdf/pageflow/internal/document"
	"github.com/gompdf/pageflow/internal/parser/html"
)

// Parser handles Markdown files using goldmark.
type Parser struct {
	md goldmark.Markdown
}

// NewParser creates a markdown parser
func NewParser() *Parser {
	return &Parser{md: goldmark.New(goldmark.WithExtensions(extension.Table))}
}

// Parse reads markdown from r. The title is the filename without its
// extension.
func (p *Parser) Parse(r io.Reader, filename string) (*document.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}
	root := p.md.Parser().Parse(text.NewReader(src))

	doc := document.New()
	doc.Title = strings.TrimSuffix(strings.TrimSuffix(filename, ".md"), ".markdown")
	b := &builder{src: src, doc: doc}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		b.block(n, 0)
	}
	return doc, nil
}

type builder struct {
	src []byte
	doc *document.Document
}

func (b *builder) add(blk *document.Block) {
	b.doc.Blocks = append(b.doc.Blocks, blk)
}

func (b *builder) block(n ast.Node, listDepth int) {
	switch node := n.(type) {
	case *ast.Heading:
		b.add(document.NewHeading(node.Level, b.inline(node)))
	case *ast.Paragraph, *ast.TextBlock:
		if img, ok := onlyImage(node); ok {
			b.add(&document.Block{
				Kind: document.KindImage,
				Src:  string(img.Destination),
				Alt:  b.inline(img),
			})
			return
		}
		if t := b.inline(node); t != "" {
			b.add(document.NewParagraph(t))
		}
	case *ast.List:
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			b.listItem(item, listDepth+1, node.IsOrdered())
		}
	case *ast.Blockquote:
		var parts []string
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if t := b.inline(c); t != "" {
				parts = append(parts, t)
			}
		}
		b.add(document.NewTextblock(document.KindBlockquote, strings.Join(parts, "\n")))
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		b.add(document.NewTextblock(document.KindCodeBlock, strings.TrimSuffix(b.lines(node), "\n")))
	case *ast.ThematicBreak:
		b.add(&document.Block{Kind: document.KindRule})
	case *ast.HTMLBlock:
		parsed, err := html.NewParser().ParseString(b.lines(node))
		if err == nil {
			b.doc.Blocks = append(b.doc.Blocks, parsed.Doc.Blocks...)
		}
	case *east.Table:
		b.add(b.table(node))
	}
}

// listItem adds the item's own text; nested lists become deeper items.
func (b *builder) listItem(item ast.Node, depth int, ordered bool) {
	var own []string
	var nested []ast.Node
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*ast.List); ok {
			nested = append(nested, c)
			continue
		}
		if t := b.inline(c); t != "" {
			own = append(own, t)
		}
	}
	blk := document.NewTextblock(document.KindListItem, strings.Join(own, "\n"))
	blk.Level = depth
	blk.Ordered = ordered
	b.add(blk)
	for _, list := range nested {
		b.block(list, depth)
	}
}

func (b *builder) table(t *east.Table) *document.Block {
	blk := &document.Block{Kind: document.KindTable}
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, b.inline(cell))
		}
		blk.Rows = append(blk.Rows, cells)
	}
	return blk
}

// inline collects the text of n's inline children. Soft breaks become
// spaces and hard breaks newlines.
func (b *builder) inline(n ast.Node) string {
	var buf bytes.Buffer
	var visit func(ast.Node)
	visit = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Segment.Value(b.src))
				switch {
				case t.HardLineBreak():
					buf.WriteByte('\n')
				case t.SoftLineBreak():
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(t.Value)
			case *ast.AutoLink:
				buf.Write(t.Label(b.src))
			case *ast.RawHTML:
			default:
				visit(c)
			}
		}
	}
	visit(n)
	return strings.TrimSpace(buf.String())
}

func (b *builder) lines(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(b.src))
	}
	return buf.String()
}

func onlyImage(n ast.Node) (*ast.Image, bool) {
	if n.ChildCount() != 1 {
		return nil, false
	}
	img, ok := n.FirstChild().(*ast.Image)
	return img, ok
}
