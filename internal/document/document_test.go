package document

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sample() *Document {
	return New(
		NewHeading(1, "Title"),           // 0..7
		NewParagraph("hello world"),      // 7..20
		&Block{Kind: KindRule},           // 20
		NewParagraph("second paragraph"), // 21..39
	)
}

func TestDocument_PositionArithmetic(t *testing.T) {
	d := sample()
	if got := d.Size(); got != 39 {
		t.Fatalf("expected size 39, got %d", got)
	}
	if got := d.Start(3); got != 21 {
		t.Errorf("expected block 3 at 21, got %d", got)
	}
	i, start, ok := d.BlockAt(20)
	if !ok || i != 2 || start != 20 {
		t.Errorf("expected rule at 20, got index %d start %d ok %v", i, start, ok)
	}
	if _, _, ok := d.BlockAt(39); ok {
		t.Error("expected document end to be outside every block")
	}
}

func TestDocument_Split(t *testing.T) {
	d := sample()
	// "hello world" starts at 7; content at 8; split before "world".
	if err := d.Split(14); err != nil {
		t.Fatalf("Split: %v", err)
	}
	got := []string{d.Blocks[1].Text, d.Blocks[2].Text}
	if d := cmp.Diff([]string{"hello ", "world"}, got); d != "" {
		t.Errorf("split text mismatch (-want +got):\n%s", d)
	}
	if d.Blocks[2].Kind != KindParagraph {
		t.Errorf("expected second half to stay a paragraph, got %s", d.Blocks[2].Kind)
	}
	// Splitting adds exactly two positions (close + open).
	if d.Size() != 41 {
		t.Errorf("expected size 41, got %d", d.Size())
	}
}

func TestDocument_SplitKeepsHeadingLevel(t *testing.T) {
	d := sample()
	if err := d.Split(3); err != nil {
		t.Fatalf("Split: %v", err)
	}
	if d.Blocks[1].Kind != KindHeading || d.Blocks[1].Level != 1 || d.Blocks[1].Text != "tle" {
		t.Errorf("unexpected second half %+v", d.Blocks[1])
	}
}

func TestDocument_SplitRejectsAtomicAndBoundaries(t *testing.T) {
	d := sample()
	if err := d.Split(20); !errors.Is(err, ErrNotTextblock) {
		t.Errorf("expected ErrNotTextblock, got %v", err)
	}
	if err := d.Split(7); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange at a block start, got %v", err)
	}
	if err := d.Split(100); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange beyond the end, got %v", err)
	}
}

func TestDocument_InsertAndDelete(t *testing.T) {
	d := sample()
	if err := d.InsertText(13, ","); err != nil {
		t.Fatalf("InsertText: %v", err)
	}
	if d.Blocks[1].Text != "hello, world" {
		t.Errorf("expected %q, got %q", "hello, world", d.Blocks[1].Text)
	}
	if err := d.Delete(8, 15); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if d.Blocks[1].Text != "world" {
		t.Errorf("expected %q, got %q", "world", d.Blocks[1].Text)
	}
	if err := d.Delete(8, 23); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected cross-block delete to fail, got %v", err)
	}
}

func TestDocument_InsertNormalizes(t *testing.T) {
	d := New(NewParagraph("caf"))
	// "e" followed by a combining acute accent composes to one rune.
	if err := d.InsertText(4, "e\u0301"); err != nil {
		t.Fatalf("InsertText: %v", err)
	}
	if d.Blocks[0].Text != "caf\u00e9" || d.Blocks[0].Len() != 4 {
		t.Errorf("expected composed %q, got %q (%d runes)", "café", d.Blocks[0].Text, d.Blocks[0].Len())
	}
}

func TestDocument_CloneIsDeep(t *testing.T) {
	d := New(&Block{Kind: KindTable, Rows: [][]string{{"a", "b"}}}, NewParagraph("x"))
	c := d.Clone()
	c.Blocks[0].Rows[0][0] = "changed"
	c.Blocks[1].Text = "y"
	if d.Blocks[0].Rows[0][0] != "a" || d.Blocks[1].Text != "x" {
		t.Error("clone shares state with the original")
	}
}

func TestDocument_BlockAndRemove(t *testing.T) {
	d := sample()
	if err := d.InsertBlock(4, NewParagraph("tail")); err != nil {
		t.Fatalf("InsertBlock: %v", err)
	}
	if err := d.RemoveBlock(2); err != nil {
		t.Fatalf("RemoveBlock: %v", err)
	}
	if len(d.Blocks) != 4 || d.Blocks[3].Text != "tail" {
		t.Errorf("unexpected blocks after insert/remove: %d", len(d.Blocks))
	}
	if err := d.InsertBlock(9, NewParagraph("x")); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}
