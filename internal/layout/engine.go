// Package layout renders a document into block boxes on a fixed-width
// column and answers the geometry queries pagination depends on.
package layout

import (
	"log/slog"

	"github.com/gompdf/pageflow/internal/document"
	"github.com/gompdf/pageflow/internal/pagination"
	"github.com/gompdf/pageflow/internal/style"
	"github.com/gompdf/pageflow/internal/text"
)

// Spacer reports the height of the overlay widgets rendered in front of a
// document position.
type Spacer interface {
	ScreenHeightBefore(pos int) float64
}

// ImageSizer returns the intrinsic pixel size of an image source.
type ImageSizer func(src string) (width, height float64, ok bool)

// Options represents options for the layout engine
type Options struct {
	// Width is the text column width.
	Width float64
	// Left is the column's offset from the viewport edge.
	Left float64
	// Images sizes image blocks that carry no height of their own.
	Images ImageSizer
	Logger *slog.Logger
}

// Engine handles the layout process
type Engine struct {
	options Options
	styles  *style.StyleEngine
	shaper  *text.TextShaper
	log     *slog.Logger
}

// NewEngine creates a new layout engine
func NewEngine(styles *style.StyleEngine, options Options) *Engine {
	if styles == nil {
		styles = style.NewStyleEngine()
	}
	if options.Width <= 0 {
		options.Width = pagination.ContentWidth
	}
	if options.Left == 0 {
		options.Left = pagination.Margin
	}
	log := options.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		options: options,
		styles:  styles,
		shaper:  text.NewTextShaper(MeasureRune),
		log:     log,
	}
}

// Styles returns the style engine used for layout.
func (e *Engine) Styles() *style.StyleEngine {
	return e.styles
}

// Layout renders doc. Block tops include the widgets spacer places in
// front of each block; a nil spacer renders the bare document.
func (e *Engine) Layout(doc *document.Document, spacer Spacer) *Frame {
	f := &Frame{Boxes: make([]*BlockBox, 0, len(doc.Blocks)), size: doc.Size()}
	pos := 0
	content := 0.0
	for _, b := range doc.Blocks {
		box := e.layoutBlock(b)
		box.Pos = pos
		box.Size = b.NodeSize()
		box.Top = content
		if spacer != nil {
			box.Top += spacer.ScreenHeightBefore(pos)
		}
		f.Boxes = append(f.Boxes, box)

		content += box.Height
		pos += box.Size
	}
	f.Height = content
	if spacer != nil {
		f.Height += spacer.ScreenHeightBefore(pos + 1)
	}
	return f
}

func (e *Engine) layoutBlock(b *document.Block) *BlockBox {
	st := e.styles.ForBlock(b)
	box := &BlockBox{
		Block:    b,
		Style:    st,
		Left:     e.options.Left,
		Width:    e.options.Width,
		Measured: true,
	}

	switch {
	case b.IsTextblock():
		box.Shaped = e.shaper.ShapeText(b.Text, FontOf(st), e.options.Width-st.Indent)
		box.Height = st.PadTop + box.Shaped.Height + st.PadBottom
	case b.Kind == document.KindTable:
		e.layoutTable(box, st)
	case b.Kind == document.KindImage:
		box.Height, box.Measured = e.imageHeight(b, st)
	default:
		box.Height = st.Height
		if box.Height == 0 {
			box.Height = st.LineHeight
		}
	}
	return box
}

// layoutTable splits the column evenly between cells; a row is as tall as
// its tallest cell.
func (e *Engine) layoutTable(box *BlockBox, st style.BlockStyle) {
	cols := 0
	for _, row := range box.Block.Rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		box.Height = st.LineHeight
		return
	}
	cellWidth := e.options.Width / float64(cols)
	font := FontOf(st)

	y := 0.0
	for _, row := range box.Block.Rows {
		tr := TableRow{Top: y}
		inner := 0.0
		for _, cell := range row {
			shaped := e.shaper.ShapeText(cell, font, cellWidth-st.Indent)
			tr.Cells = append(tr.Cells, shaped)
			inner = max(inner, shaped.Height)
		}
		tr.Height = st.PadTop + max(inner, st.LineHeight) + st.PadBottom
		box.Rows = append(box.Rows, tr)
		y += tr.Height
	}
	box.Height = y
}

// imageHeight scales an image to fit the column. An image without a known
// size is unmeasured and contributes nothing until it is sized.
func (e *Engine) imageHeight(b *document.Block, st style.BlockStyle) (float64, bool) {
	if b.Height > 0 {
		return b.Height, true
	}
	if st.Height > 0 {
		return st.Height, true
	}
	if e.options.Images == nil || b.Src == "" {
		return 0, false
	}
	w, h, ok := e.options.Images(b.Src)
	if !ok || w <= 0 || h <= 0 {
		e.log.Debug("image has no intrinsic size", "src", b.Src)
		return 0, false
	}
	if w > e.options.Width {
		h *= e.options.Width / w
	}
	return h, true
}

// FontOf returns the font a block style renders with.
func FontOf(st style.BlockStyle) *text.Font {
	return &text.Font{
		Family:     st.FontFamily,
		Bold:       st.Bold,
		Italic:     st.Italic,
		Size:       st.FontSize,
		LineHeight: st.LineHeight,
	}
}
