package api

import (
	"fmt"

	"github.com/gompdf/pageflow/internal/document"
	"github.com/gompdf/pageflow/internal/editor"
)

// Edit operations
const (
	OpInsertText  = "insert_text"
	OpDelete      = "delete"
	OpSplit       = "split"
	OpInsertBlock = "insert_block"
	OpRemoveBlock = "remove_block"
)

// Edit is one step of a transaction, in a form that travels as JSON.
type Edit struct {
	Op string `json:"op"`
	// Pos addresses insert_text and split.
	Pos int `json:"pos,omitempty"`
	// From and To bound a delete.
	From int `json:"from,omitempty"`
	To   int `json:"to,omitempty"`
	// Index is the block index of insert_block and remove_block.
	Index int    `json:"index,omitempty"`
	Text  string `json:"text,omitempty"`
	// Kind and Level describe an inserted block; Kind defaults to a
	// paragraph.
	Kind  string `json:"kind,omitempty"`
	Level int    `json:"level,omitempty"`
}

func (e Edit) apply(tr *editor.Transaction) error {
	switch e.Op {
	case OpInsertText:
		tr.InsertText(e.Pos, e.Text)
	case OpDelete:
		tr.Delete(e.From, e.To)
	case OpSplit:
		tr.Split(e.Pos)
	case OpInsertBlock:
		b, err := e.block()
		if err != nil {
			return err
		}
		tr.InsertBlock(e.Index, b)
	case OpRemoveBlock:
		tr.RemoveBlock(e.Index)
	default:
		return fmt.Errorf("unknown edit op %q", e.Op)
	}
	return nil
}

func (e Edit) block() (*document.Block, error) {
	kind := document.Kind(e.Kind)
	switch kind {
	case "", document.KindParagraph:
		return document.NewParagraph(e.Text), nil
	case document.KindHeading:
		return document.NewHeading(e.Level, e.Text), nil
	case document.KindListItem, document.KindBlockquote, document.KindCodeBlock:
		b := document.NewTextblock(kind, e.Text)
		b.Level = e.Level
		return b, nil
	case document.KindRule:
		return &document.Block{Kind: kind}, nil
	}
	return nil, fmt.Errorf("cannot insert a %q block", e.Kind)
}
