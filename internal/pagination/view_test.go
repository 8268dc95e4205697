package pagination_test

import (
	"errors"
	"math"

	"github.com/gompdf/pageflow/internal/pagination"
)

// fakeBlock is a synthetic block laid out on a fixed character grid.
type fakeBlock struct {
	typ string
	// chars is the text length of a paragraph; 0 for atomic blocks.
	chars int
	// height overrides the grid height when non-zero.
	height float64
	// hidden blocks report no height and no rectangle.
	hidden bool
}

// fakeView renders blocks as rows of charsPerRow characters, LineHeight
// pixels tall, stacked from y=0.
type fakeView struct {
	blocks      []fakeBlock
	charsPerRow int

	commits  int
	overlay  *pagination.OverlaySet
	splitErr error
	splitAt  []int

	// onChange receives every applied transaction, like an editor would.
	onChange func(pagination.Change)
}

func newFakeView(blocks ...fakeBlock) *fakeView {
	return &fakeView{blocks: blocks, charsPerRow: 60}
}

func para(chars int) fakeBlock { return fakeBlock{typ: pagination.TypeParagraph, chars: chars} }

func fixed(typ string, h float64) fakeBlock { return fakeBlock{typ: typ, height: h} }

func (v *fakeView) size(b fakeBlock) int {
	if b.typ == pagination.TypeParagraph {
		return b.chars + 2
	}
	return 1
}

func (v *fakeView) rows(b fakeBlock) int {
	if b.chars == 0 {
		return 1
	}
	return (b.chars + v.charsPerRow - 1) / v.charsPerRow
}

func (v *fakeView) heightOf(b fakeBlock) float64 {
	if b.height != 0 {
		return b.height
	}
	return float64(v.rows(b) * pagination.LineHeight)
}

func (v *fakeView) Blocks() []pagination.Block {
	out := make([]pagination.Block, 0, len(v.blocks))
	pos := 0
	for _, b := range v.blocks {
		out = append(out, pagination.Block{Pos: pos, Size: v.size(b), Type: b.typ})
		pos += v.size(b)
	}
	return out
}

func (v *fakeView) Size() int {
	n := 0
	for _, b := range v.blocks {
		n += v.size(b)
	}
	return n
}

// locate returns the block index starting at pos and its top edge.
func (v *fakeView) locate(pos int) (int, float64, bool) {
	p, top := 0, 0.0
	for i, b := range v.blocks {
		if p == pos {
			return i, top, true
		}
		p += v.size(b)
		top += v.heightOf(b)
	}
	return 0, 0, false
}

func (v *fakeView) HeightOf(pos int) (float64, bool) {
	i, _, ok := v.locate(pos)
	if !ok || v.blocks[i].hidden {
		return 0, false
	}
	return v.heightOf(v.blocks[i]), true
}

func (v *fakeView) BlockRect(pos int) (pagination.Rect, bool) {
	i, top, ok := v.locate(pos)
	if !ok || v.blocks[i].hidden {
		return pagination.Rect{}, false
	}
	return pagination.Rect{Top: top, Left: 0, Width: float64(v.charsPerRow), Height: v.heightOf(v.blocks[i])}, true
}

func (v *fakeView) PosAtCoords(x, y float64) (int, bool) {
	p, top := 0, 0.0
	for _, b := range v.blocks {
		h := v.heightOf(b)
		if y >= top && y < top+h {
			if b.typ != pagination.TypeParagraph {
				return p, true
			}
			row := int(math.Floor((y - top) / pagination.LineHeight))
			col := int(x)
			if col > v.charsPerRow {
				col = v.charsPerRow
			}
			off := row*v.charsPerRow + col
			if off > b.chars {
				off = b.chars
			}
			return p + 1 + off, true
		}
		p += v.size(b)
		top += h
	}
	return 0, false
}

func (v *fakeView) CoordsAtPos(pos int) (pagination.Coords, bool) {
	p, top := 0, 0.0
	for _, b := range v.blocks {
		sz := v.size(b)
		if pos >= p && pos < p+sz {
			off := pos - p - 1
			if off < 0 {
				off = 0
			}
			row := off / v.charsPerRow
			return pagination.Coords{Top: top + float64(row*pagination.LineHeight), Left: float64(off % v.charsPerRow)}, true
		}
		p += sz
		top += v.heightOf(b)
	}
	return pagination.Coords{}, false
}

func (v *fakeView) CommitOverlay(set *pagination.OverlaySet) error {
	v.commits++
	v.overlay = set
	v.emit(pagination.Change{Meta: pagination.Meta{SkipHistory: true, OverlayCommit: true}})
	return nil
}

func (v *fakeView) Split(pos int, meta pagination.Meta) error {
	if v.splitErr != nil {
		return v.splitErr
	}
	p := 0
	for i, b := range v.blocks {
		sz := v.size(b)
		if pos > p && pos < p+sz-1 && b.typ == pagination.TypeParagraph {
			off := pos - p - 1
			first := fakeBlock{typ: b.typ, chars: off}
			second := fakeBlock{typ: b.typ, chars: b.chars - off}
			v.blocks = append(v.blocks[:i], append([]fakeBlock{first, second}, v.blocks[i+1:]...)...)
			v.splitAt = append(v.splitAt, pos)
			v.emit(pagination.Change{DocChanged: true, Meta: meta})
			return nil
		}
		p += sz
	}
	return errors.New("no textblock at position")
}

func (v *fakeView) emit(c pagination.Change) {
	if v.onChange != nil {
		v.onChange(c)
	}
}

// edit simulates a user transaction that changes the document.
func (v *fakeView) edit() {
	v.emit(pagination.Change{DocChanged: true})
}
