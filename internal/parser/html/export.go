package html

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gompdf/pageflow/internal/document"
	"github.com/gompdf/pageflow/internal/pagination"
)

// printStyles lays the exported document out on US Letter with a break
// before every divider.
const printStyles = `
@page { size: letter; margin: 1in; }
.` + ClassDivider + ` { break-before: page; height: 0; }
.` + ClassFooter + ` { text-align: center; font-size: 12px; }
@media print { .` + ClassNoPrint + ` { display: none; } }
`

// RenderOptions controls the exported markup.
type RenderOptions struct {
	// Screen renders the on-screen view: page bands, fills and the gaps
	// between sheets instead of the hidden dividers.
	Screen bool
}

// Render writes doc as a complete HTML document with the overlay widgets
// placed in front of the blocks they are anchored to.
func Render(w io.Writer, doc *document.Document, overlay *pagination.OverlaySet, opts RenderOptions) error {
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	htm := element("html")
	head := element("head")
	head.AppendChild(element("meta", attribute("charset", "utf-8")))
	if doc.Title != "" {
		head.AppendChild(withText(element("title"), doc.Title))
	}
	head.AppendChild(withText(element("style"), printStyles))
	body := element("body")
	htm.AppendChild(head)
	htm.AppendChild(body)
	root.AppendChild(htm)

	var widgets []pagination.Widget
	if overlay != nil {
		widgets = overlay.Widgets
	}
	next := 0
	emit := func(before func(pagination.Widget) bool) {
		for next < len(widgets) && before(widgets[next]) {
			if n := widgetNode(widgets[next], opts); n != nil {
				body.AppendChild(n)
			}
			next++
		}
	}

	var list *html.Node
	pos := 0
	for _, b := range doc.Blocks {
		at := pos
		emitted := next
		emit(func(w pagination.Widget) bool { return w.Pos < at || w.Pos == at && w.Side < 0 })
		if next != emitted || b.Kind != document.KindListItem {
			list = nil
		}

		n := blockNode(b)
		if b.Kind == document.KindListItem {
			if list == nil || (list.DataAtom == atom.Ol) != b.Ordered {
				list = element("ul")
				if b.Ordered {
					list = element("ol")
				}
				body.AppendChild(list)
			}
			list.AppendChild(n)
		} else {
			body.AppendChild(n)
		}
		pos += b.NodeSize()
	}
	emit(func(pagination.Widget) bool { return true })

	if err := html.Render(w, root); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	return nil
}

// RenderString renders to a string.
func RenderString(doc *document.Document, overlay *pagination.OverlaySet, opts RenderOptions) (string, error) {
	var sb strings.Builder
	if err := Render(&sb, doc, overlay, opts); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func widgetNode(w pagination.Widget, opts RenderOptions) *html.Node {
	if (opts.Screen && w.ExportOnly) || (!opts.Screen && w.ScreenOnly) {
		return nil
	}
	page := attribute("data-page", strconv.Itoa(w.Page))
	height := attribute("style", fmt.Sprintf("height: %gpx", w.Height))

	switch w.Kind {
	case pagination.WidgetDivider:
		return element("div", attribute("class", ClassDivider), page)
	case pagination.WidgetFooter:
		n := element("div", attribute("class", ClassFooter), page)
		if opts.Screen {
			n.Attr = append(n.Attr, height)
		}
		return withText(n, w.Label)
	case pagination.WidgetGap:
		return withText(element("div", attribute("class", ClassGap+" "+ClassNoPrint), page, height), w.Label)
	case pagination.WidgetHeader:
		if opts.Screen {
			return element("div", attribute("class", ClassHeader), page, height)
		}
	case pagination.WidgetFill:
		if opts.Screen {
			return element("div", attribute("class", ClassFill), page, height)
		}
	}
	return nil
}

func blockNode(b *document.Block) *html.Node {
	switch b.Kind {
	case document.KindHeading:
		return withLines(element(fmt.Sprintf("h%d", b.Level)), b.Text)
	case document.KindListItem:
		n := withLines(element("li"), b.Text)
		if b.Level > 1 {
			n.Attr = append(n.Attr, attribute("data-level", strconv.Itoa(b.Level)))
		}
		return n
	case document.KindBlockquote:
		return withLines(element("blockquote"), b.Text)
	case document.KindCodeBlock:
		return withText(element("pre"), b.Text)
	case document.KindRule:
		return element("hr")
	case document.KindImage:
		n := element("img", attribute("src", b.Src), attribute("alt", b.Alt))
		if b.Height > 0 {
			n.Attr = append(n.Attr, attribute("height", strconv.FormatFloat(b.Height, 'f', -1, 64)))
		}
		return n
	case document.KindTable:
		t := element("table")
		for _, row := range b.Rows {
			tr := element("tr")
			for _, cell := range row {
				tr.AppendChild(withText(element("td"), cell))
			}
			t.AppendChild(tr)
		}
		return t
	}
	return withLines(element("p"), b.Text)
}

func element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

func attribute(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func withText(n *html.Node, s string) *html.Node {
	if s != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
	return n
}

// withLines appends text with hard breaks as <br>.
func withLines(n *html.Node, s string) *html.Node {
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			n.AppendChild(element("br"))
		}
		withText(n, line)
	}
	return n
}
