package editor

import (
	"fmt"

	"github.com/gompdf/pageflow/internal/document"
	"github.com/gompdf/pageflow/internal/pagination"
)

type step struct {
	name  string
	apply func(d *document.Document) error
}

// Transaction is a batch of document steps applied atomically.
type Transaction struct {
	steps []step
	meta  pagination.Meta
}

// InsertText inserts text at pos.
func (t *Transaction) InsertText(pos int, s string) *Transaction {
	return t.add(fmt.Sprintf("insert at %d", pos), func(d *document.Document) error {
		return d.InsertText(pos, s)
	})
}

// Delete removes the text between from and to.
func (t *Transaction) Delete(from, to int) *Transaction {
	return t.add(fmt.Sprintf("delete %d-%d", from, to), func(d *document.Document) error {
		return d.Delete(from, to)
	})
}

// Split splits the textblock containing pos.
func (t *Transaction) Split(pos int) *Transaction {
	return t.add(fmt.Sprintf("split at %d", pos), func(d *document.Document) error {
		return d.Split(pos)
	})
}

// InsertBlock inserts b before block index i.
func (t *Transaction) InsertBlock(i int, b *document.Block) *Transaction {
	return t.add(fmt.Sprintf("insert block %d", i), func(d *document.Document) error {
		return d.InsertBlock(i, b.Clone())
	})
}

// RemoveBlock removes block index i.
func (t *Transaction) RemoveBlock(i int) *Transaction {
	return t.add(fmt.Sprintf("remove block %d", i), func(d *document.Document) error {
		return d.RemoveBlock(i)
	})
}

// ReplaceDoc replaces the whole document.
func (t *Transaction) ReplaceDoc(doc *document.Document) *Transaction {
	return t.add("replace document", func(d *document.Document) error {
		c := doc.Clone()
		d.Title, d.Blocks = c.Title, c.Blocks
		return nil
	})
}

// SetMeta tags the transaction.
func (t *Transaction) SetMeta(m pagination.Meta) *Transaction {
	t.meta = m
	return t
}

// DocChanged reports whether the transaction carries any step.
func (t *Transaction) DocChanged() bool {
	return len(t.steps) > 0
}

func (t *Transaction) add(name string, apply func(*document.Document) error) *Transaction {
	t.steps = append(t.steps, step{name: name, apply: apply})
	return t
}
