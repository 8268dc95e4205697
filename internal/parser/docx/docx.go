// Package docx imports Word documents into the block document model and
// exports paginated documents with a hard page break at every divider.
package docx

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/gompdf/pageflow/internal/document"
	"github.com/gompdf/pageflow/internal/pagination"
)

// Paragraph style names written on export and recognized on import.
const (
	StyleQuote        = "Quote"
	StyleCode         = "Code"
	StyleListBullet   = "ListBullet"
	StyleListNumber   = "ListNumber"
	StyleRule         = "HorizontalRule"
	StyleImageCaption = "Caption"
)

// Parser handles .docx files.
type Parser struct{}

// Parse reads a .docx document from r.
func (p *Parser) Parse(r io.Reader, filename string) (*document.Document, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "pageflow-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	f, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	doc := document.New()
	doc.Title = strings.TrimSuffix(filename, ".docx")
	for _, item := range f.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			if blk := paragraphBlock(it); blk != nil {
				doc.Blocks = append(doc.Blocks, blk)
			}
		case *docx.Table:
			doc.Blocks = append(doc.Blocks, tableBlock(it))
		}
	}
	return doc, nil
}

func paragraphBlock(para *docx.Paragraph) *document.Block {
	style := paragraphStyle(para)
	if style == StyleRule {
		return &document.Block{Kind: document.KindRule}
	}
	text := paragraphText(para)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if level := headingLevel(style); level > 0 {
		return document.NewHeading(level, text)
	}

	switch {
	case strings.EqualFold(style, StyleQuote):
		return document.NewTextblock(document.KindBlockquote, text)
	case strings.EqualFold(style, StyleCode):
		return document.NewTextblock(document.KindCodeBlock, text)
	case strings.EqualFold(style, StyleListBullet), strings.EqualFold(style, StyleListNumber),
		strings.EqualFold(style, "ListParagraph"):
		blk := document.NewTextblock(document.KindListItem, text)
		blk.Level = 1
		blk.Ordered = strings.EqualFold(style, StyleListNumber)
		return blk
	}
	return document.NewParagraph(text)
}

func tableBlock(t *docx.Table) *document.Block {
	blk := &document.Block{Kind: document.KindTable}
	for _, row := range t.TableRows {
		var cells []string
		for _, cell := range row.TableCells {
			var parts []string
			for _, p := range cell.Paragraphs {
				if s := paragraphText(p); s != "" {
					parts = append(parts, s)
				}
			}
			cells = append(cells, strings.Join(parts, "\n"))
		}
		blk.Rows = append(blk.Rows, cells)
	}
	return blk
}

func paragraphStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func headingLevel(style string) int {
	for level := 1; level <= 6; level++ {
		if strings.EqualFold(style, fmt.Sprintf("Heading%d", level)) ||
			strings.EqualFold(style, fmt.Sprintf("heading %d", level)) {
			return level
		}
	}
	return 0
}

// paragraphText joins the text of every run. Line breaks become hard
// breaks; page breaks are dropped.
func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch t := rc.(type) {
			case *docx.Text:
				buf.WriteString(t.Text)
			case *docx.Tab:
				buf.WriteByte('\t')
			case *docx.BarterRabbet:
				if t.Type != "page" {
					buf.WriteByte('\n')
				}
			}
		}
	}
	return strings.Trim(buf.String(), " \n")
}

// Render writes doc as a .docx file on US Letter. Each divider in overlay
// becomes a page break in front of the block it is anchored to. Images are
// written as their alternative text.
func Render(w io.Writer, doc *document.Document, overlay *pagination.OverlaySet) error {
	f := docx.New().WithDefaultTheme()

	var breaks []int
	if overlay != nil {
		breaks = overlay.Dividers()
	}
	pos := 0
	for _, b := range doc.Blocks {
		for len(breaks) > 0 && breaks[0] <= pos {
			f.AddParagraph().AddPageBreaks()
			breaks = breaks[1:]
		}
		writeBlock(f, b)
		pos += b.NodeSize()
	}

	// 1 inch is 1440 twips.
	f.Document.Body.Items = append(f.Document.Body.Items, &docx.SectPr{
		PgSz:  &docx.PgSz{W: 12240, H: 15840},
		PgMar: &docx.PgMar{Top: 1440, Left: 1440, Bottom: 1440, Right: 1440, Header: 720, Footer: 720},
	})

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func writeBlock(f *docx.Docx, b *document.Block) {
	switch b.Kind {
	case document.KindHeading:
		f.AddParagraph().Style(fmt.Sprintf("Heading%d", b.Level)).AddText(b.Text)
	case document.KindListItem:
		style := StyleListBullet
		if b.Ordered {
			style = StyleListNumber
		}
		f.AddParagraph().Style(style).AddText(b.Text)
	case document.KindBlockquote:
		f.AddParagraph().Style(StyleQuote).AddText(b.Text)
	case document.KindCodeBlock:
		f.AddParagraph().Style(StyleCode).AddText(b.Text)
	case document.KindRule:
		f.AddParagraph().Style(StyleRule)
	case document.KindImage:
		f.AddParagraph().Style(StyleImageCaption).AddText(b.Alt)
	case document.KindTable:
		cols := 0
		for _, row := range b.Rows {
			cols = max(cols, len(row))
		}
		if len(b.Rows) == 0 || cols == 0 {
			return
		}
		t := f.AddTable(len(b.Rows), cols, 0, nil)
		for i, row := range b.Rows {
			for j, cell := range row {
				t.TableRows[i].TableCells[j].AddParagraph().AddText(cell)
			}
		}
	default:
		f.AddParagraph().AddText(b.Text)
	}
}
