package layout

import (
	"math"
	"sort"

	"github.com/gompdf/pageflow/internal/document"
	"github.com/gompdf/pageflow/internal/pagination"
	"github.com/gompdf/pageflow/internal/style"
	"github.com/gompdf/pageflow/internal/text"
)

// BlockBox is the rendered box of one top-level block.
type BlockBox struct {
	Pos   int
	Size  int
	Block *document.Block
	Style style.BlockStyle

	Top    float64
	Left   float64
	Width  float64
	Height float64

	// Shaped holds the wrapped text of textblocks.
	Shaped *text.ShapedText
	// Rows holds the wrapped cells of tables.
	Rows []TableRow
	// Measured is false while the box has no known height, such as an
	// image whose source has not been sized yet.
	Measured bool
}

// TableRow is one laid-out table row.
type TableRow struct {
	Top    float64
	Height float64
	Cells  []*text.ShapedText
}

// Frame is one render of a document: every block box in document order,
// offset by the overlay widgets in front of it.
type Frame struct {
	Boxes  []*BlockBox
	Height float64
	size   int
}

var _ pagination.Measurer = (*Frame)(nil)

// Box returns the box starting at pos.
func (f *Frame) Box(pos int) (*BlockBox, bool) {
	i := sort.Search(len(f.Boxes), func(i int) bool { return f.Boxes[i].Pos >= pos })
	if i < len(f.Boxes) && f.Boxes[i].Pos == pos {
		return f.Boxes[i], true
	}
	return nil, false
}

// boxAt returns the box whose range contains pos.
func (f *Frame) boxAt(pos int) (*BlockBox, bool) {
	i := sort.Search(len(f.Boxes), func(i int) bool { return f.Boxes[i].Pos+f.Boxes[i].Size > pos })
	if i < len(f.Boxes) && f.Boxes[i].Pos <= pos {
		return f.Boxes[i], true
	}
	return nil, false
}

// HeightOf returns the rendered height of the block starting at pos.
func (f *Frame) HeightOf(pos int) (float64, bool) {
	b, ok := f.Box(pos)
	if !ok || !b.Measured {
		return 0, false
	}
	return b.Height, true
}

// BlockRect returns the on-screen rectangle of the block starting at pos.
func (f *Frame) BlockRect(pos int) (pagination.Rect, bool) {
	b, ok := f.Box(pos)
	if !ok {
		return pagination.Rect{}, false
	}
	return pagination.Rect{Top: b.Top, Left: b.Left, Width: b.Width, Height: b.Height}, true
}

// PosAtCoords maps a point to the nearest document position. Points above
// the first block map into it; points below the last map into the last.
func (f *Frame) PosAtCoords(x, y float64) (int, bool) {
	if len(f.Boxes) == 0 || math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	i := sort.Search(len(f.Boxes), func(i int) bool {
		b := f.Boxes[i]
		return b.Top+b.Height > y
	})
	if i == len(f.Boxes) {
		i--
	}
	b := f.Boxes[i]
	if b.Shaped == nil {
		return b.Pos, true
	}
	return b.Pos + 1 + b.offsetAt(x, y), true
}

// offsetAt finds the rune offset under a point inside a textblock box.
func (b *BlockBox) offsetAt(x, y float64) int {
	t := b.Shaped
	row := int(math.Floor((y - b.Top - b.Style.PadTop) / t.LineHeight))
	row = max(0, min(row, len(t.Lines)-1))
	line := t.Lines[row]

	rel := x - b.Left - b.Style.Indent
	for j := line.Start; j < line.End; j++ {
		g := t.Glyphs[j]
		if g.Rune == '\n' || rel < g.X+g.Advance/2 {
			return j
		}
	}
	if row < len(t.Lines)-1 && line.End > line.Start {
		// The end of a wrapped row is the start of the next one.
		return line.End - 1
	}
	return line.End
}

// CoordsAtPos returns the top-left corner of the caret at pos.
func (f *Frame) CoordsAtPos(pos int) (pagination.Coords, bool) {
	if pos == f.size && len(f.Boxes) > 0 {
		last := f.Boxes[len(f.Boxes)-1]
		return pagination.Coords{Top: last.Top + last.Height, Left: last.Left}, true
	}
	b, ok := f.boxAt(pos)
	if !ok {
		return pagination.Coords{}, false
	}
	if b.Shaped == nil {
		return pagination.Coords{Top: b.Top, Left: b.Left}, true
	}

	t := b.Shaped
	off := max(0, min(pos-b.Pos-1, len(t.Glyphs)))
	row := 0
	for i, l := range t.Lines {
		if l.Start <= off {
			row = i
		}
	}
	line := t.Lines[row]
	x := line.Width
	if off < line.End {
		x = t.Glyphs[off].X
	}
	return pagination.Coords{
		Top:  b.Top + b.Style.PadTop + line.Top,
		Left: b.Left + b.Style.Indent + x,
	}, true
}
