// Package document is the block-level document model the pagination engine
// paginates. Positions count like a rich-text editor's: content starts at 0,
// a textblock spans its runes plus an opening and a closing token, and an
// atomic block spans a single position.
package document

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrOutOfRange is returned for positions outside the document or block.
	ErrOutOfRange = errors.New("position out of range")
	// ErrNotTextblock is returned when a text operation targets an atomic block.
	ErrNotTextblock = errors.New("position is not inside a textblock")
)

// Kind is the type tag of a block.
type Kind string

const (
	KindParagraph  Kind = "paragraph"
	KindHeading    Kind = "heading"
	KindListItem   Kind = "list_item"
	KindBlockquote Kind = "blockquote"
	KindCodeBlock  Kind = "code_block"
	KindRule       Kind = "horizontal_rule"
	KindTable      Kind = "table"
	KindImage      Kind = "image"
)

// Block is a top-level node.
type Block struct {
	Kind Kind
	// Level is the heading level (1-6) or the list nesting depth.
	Level int
	// Ordered marks numbered list items.
	Ordered bool
	// Text holds the content of textblocks, NFC-normalized.
	Text string
	// Rows holds table cell text.
	Rows [][]string
	// Src and Alt describe images; Height is the intrinsic image height in
	// pixels, 0 while unknown.
	Src    string
	Alt    string
	Height float64
}

// NewParagraph creates a paragraph block
func NewParagraph(text string) *Block {
	return &Block{Kind: KindParagraph, Text: norm.NFC.String(text)}
}

// NewHeading creates a heading block
func NewHeading(level int, text string) *Block {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return &Block{Kind: KindHeading, Level: level, Text: norm.NFC.String(text)}
}

// NewTextblock creates a textblock of the given kind
func NewTextblock(kind Kind, text string) *Block {
	return &Block{Kind: kind, Text: norm.NFC.String(text)}
}

// IsTextblock reports whether the block holds inline text.
func (b *Block) IsTextblock() bool {
	switch b.Kind {
	case KindParagraph, KindHeading, KindListItem, KindBlockquote, KindCodeBlock:
		return true
	}
	return false
}

// Len returns the number of runes of text.
func (b *Block) Len() int {
	return utf8.RuneCountInString(b.Text)
}

// NodeSize returns the number of positions the block spans.
func (b *Block) NodeSize() int {
	if b.IsTextblock() {
		return b.Len() + 2
	}
	return 1
}

// Clone returns a deep copy.
func (b *Block) Clone() *Block {
	c := *b
	if b.Rows != nil {
		c.Rows = make([][]string, len(b.Rows))
		for i, row := range b.Rows {
			c.Rows[i] = append([]string(nil), row...)
		}
	}
	return &c
}

// Document is an ordered sequence of top-level blocks.
type Document struct {
	Title  string
	Blocks []*Block
}

// New creates a document from blocks
func New(blocks ...*Block) *Document {
	return &Document{Blocks: blocks}
}

// Size returns the content size of the document.
func (d *Document) Size() int {
	n := 0
	for _, b := range d.Blocks {
		n += b.NodeSize()
	}
	return n
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := &Document{Title: d.Title, Blocks: make([]*Block, len(d.Blocks))}
	for i, b := range d.Blocks {
		c.Blocks[i] = b.Clone()
	}
	return c
}

// Start returns the position at which block i starts.
func (d *Document) Start(i int) int {
	pos := 0
	for _, b := range d.Blocks[:i] {
		pos += b.NodeSize()
	}
	return pos
}

// BlockAt returns the index and start position of the block containing pos.
func (d *Document) BlockAt(pos int) (int, int, bool) {
	start := 0
	for i, b := range d.Blocks {
		if pos >= start && pos < start+b.NodeSize() {
			return i, start, true
		}
		start += b.NodeSize()
	}
	return 0, 0, false
}

// TextOffset resolves pos to a block index and a rune offset inside that
// block's text. Valid offsets run from 0 to Len inclusive.
func (d *Document) TextOffset(pos int) (int, int, error) {
	i, start, ok := d.BlockAt(pos)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d", ErrOutOfRange, pos)
	}
	b := d.Blocks[i]
	if !b.IsTextblock() {
		return 0, 0, fmt.Errorf("%w: %s at %d", ErrNotTextblock, b.Kind, start)
	}
	off := pos - start - 1
	if off < 0 || off > b.Len() {
		return 0, 0, fmt.Errorf("%w: %d is a block boundary", ErrOutOfRange, pos)
	}
	return i, off, nil
}

// Split cuts the textblock containing pos into two blocks of the same kind.
func (d *Document) Split(pos int) error {
	i, off, err := d.TextOffset(pos)
	if err != nil {
		return err
	}
	b := d.Blocks[i]
	runes := []rune(b.Text)
	second := b.Clone()
	b.Text = string(runes[:off])
	second.Text = string(runes[off:])
	d.Blocks = append(d.Blocks[:i+1], append([]*Block{second}, d.Blocks[i+1:]...)...)
	return nil
}

// InsertText inserts text at pos. Newlines are kept as hard breaks.
func (d *Document) InsertText(pos int, text string) error {
	i, off, err := d.TextOffset(pos)
	if err != nil {
		return err
	}
	b := d.Blocks[i]
	runes := []rune(b.Text)
	b.Text = norm.NFC.String(string(runes[:off]) + text + string(runes[off:]))
	return nil
}

// Delete removes the text between from and to, which must lie in the same
// textblock.
func (d *Document) Delete(from, to int) error {
	if from > to {
		from, to = to, from
	}
	i, a, err := d.TextOffset(from)
	if err != nil {
		return err
	}
	j, b, err := d.TextOffset(to)
	if err != nil {
		return err
	}
	if i != j {
		return fmt.Errorf("%w: %d and %d are in different blocks", ErrOutOfRange, from, to)
	}
	runes := []rune(d.Blocks[i].Text)
	d.Blocks[i].Text = string(runes[:a]) + string(runes[b:])
	return nil
}

// InsertBlock inserts b before block index i; i == len(Blocks) appends.
func (d *Document) InsertBlock(i int, b *Block) error {
	if i < 0 || i > len(d.Blocks) {
		return fmt.Errorf("%w: block index %d", ErrOutOfRange, i)
	}
	d.Blocks = append(d.Blocks[:i], append([]*Block{b}, d.Blocks[i:]...)...)
	return nil
}

// RemoveBlock removes block i.
func (d *Document) RemoveBlock(i int) error {
	if i < 0 || i >= len(d.Blocks) {
		return fmt.Errorf("%w: block index %d", ErrOutOfRange, i)
	}
	d.Blocks = append(d.Blocks[:i], d.Blocks[i+1:]...)
	return nil
}

// PlainText returns the document text, one block per paragraph.
func (d *Document) PlainText() string {
	var sb strings.Builder
	for i, b := range d.Blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch {
		case b.IsTextblock():
			sb.WriteString(b.Text)
		case b.Kind == KindTable:
			for r, row := range b.Rows {
				if r > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(strings.Join(row, "\t"))
			}
		case b.Kind == KindImage:
			sb.WriteString(b.Alt)
		case b.Kind == KindRule:
			sb.WriteString("---")
		}
	}
	return sb.String()
}
