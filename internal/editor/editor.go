// Package editor is the editing surface pagination runs against. It owns the
// document, its undo history, the current render and the overlay widgets.
package editor

import (
	"fmt"
	"log/slog"

	"github.com/gompdf/pageflow/internal/document"
	"github.com/gompdf/pageflow/internal/layout"
	"github.com/gompdf/pageflow/internal/pagination"
)

// DefaultHistoryDepth is the number of undo steps kept.
const DefaultHistoryDepth = 100

// Listener observes every applied transaction.
type Listener func(pagination.Change)

// Editor holds a document and renders it through a layout engine.
// It is not safe for concurrent use; callers serialize access on the loop
// that runs the pagination engine.
type Editor struct {
	doc     *document.Document
	layout  *layout.Engine
	frame   *layout.Frame
	overlay *pagination.OverlaySet

	history      []*document.Document
	historyDepth int
	version      int

	listeners []Listener
	log       *slog.Logger
}

// New creates an editor for doc. A nil engine lays out with the default
// stylesheet on the standard column.
func New(doc *document.Document, engine *layout.Engine, log *slog.Logger) *Editor {
	if doc == nil {
		doc = document.New()
	}
	if engine == nil {
		engine = layout.NewEngine(nil, layout.Options{})
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Editor{
		doc:          doc,
		layout:       engine,
		historyDepth: DefaultHistoryDepth,
		log:          log,
	}
}

var _ pagination.View = (*Editor)(nil)

// OnChange registers a listener.
func (e *Editor) OnChange(l Listener) {
	e.listeners = append(e.listeners, l)
}

// Doc returns the current document. Callers must not modify it; edits go
// through Dispatch.
func (e *Editor) Doc() *document.Document {
	return e.doc
}

// Version counts applied document changes.
func (e *Editor) Version() int {
	return e.version
}

// Overlay returns the committed overlay widgets.
func (e *Editor) Overlay() *pagination.OverlaySet {
	return e.overlay
}

// Tr starts a new transaction.
func (e *Editor) Tr() *Transaction {
	return &Transaction{}
}

// Dispatch applies tr. Steps run against a copy, so a failing step leaves
// the document untouched.
func (e *Editor) Dispatch(tr *Transaction) error {
	if tr.DocChanged() {
		next := e.doc.Clone()
		for _, s := range tr.steps {
			if err := s.apply(next); err != nil {
				return fmt.Errorf("failed to apply %s: %w", s.name, err)
			}
		}
		if !tr.meta.SkipHistory {
			e.pushHistory(e.doc)
		}
		e.doc = next
		e.frame = nil
		e.version++
	}
	e.notify(pagination.Change{DocChanged: tr.DocChanged(), Meta: tr.meta})
	return nil
}

// Undo restores the document as it was before the last recorded
// transaction. It reports false when there is nothing to undo.
func (e *Editor) Undo() bool {
	if len(e.history) == 0 {
		return false
	}
	e.doc = e.history[len(e.history)-1]
	e.history = e.history[:len(e.history)-1]
	e.frame = nil
	e.version++
	e.notify(pagination.Change{DocChanged: true})
	return true
}

// Remeasure drops the current render after something outside the document
// changed its geometry, such as an image size arriving, and asks for a new
// pagination pass.
func (e *Editor) Remeasure() {
	e.frame = nil
	e.notify(pagination.Change{Meta: pagination.Meta{SkipHistory: true, ForcePagination: true}})
}

// HistoryLen returns the number of undo steps.
func (e *Editor) HistoryLen() int {
	return len(e.history)
}

func (e *Editor) pushHistory(d *document.Document) {
	e.history = append(e.history, d)
	if over := len(e.history) - e.historyDepth; over > 0 {
		e.history = append(e.history[:0], e.history[over:]...)
	}
}

func (e *Editor) notify(c pagination.Change) {
	for _, l := range e.listeners {
		l(c)
	}
}

// Frame returns the current render, laying the document out again when it
// or the overlay changed.
func (e *Editor) Frame() *layout.Frame {
	if e.frame == nil {
		var spacer layout.Spacer
		if e.overlay != nil {
			spacer = e.overlay
		}
		e.frame = e.layout.Layout(e.doc, spacer)
	}
	return e.frame
}

// Blocks returns the top-level blocks for the layout scan.
func (e *Editor) Blocks() []pagination.Block {
	out := make([]pagination.Block, len(e.doc.Blocks))
	pos := 0
	for i, b := range e.doc.Blocks {
		out[i] = pagination.Block{Pos: pos, Size: b.NodeSize(), Type: string(b.Kind)}
		pos += b.NodeSize()
	}
	return out
}

// Size returns the document content size.
func (e *Editor) Size() int {
	return e.doc.Size()
}

// HeightOf implements pagination.Measurer.
func (e *Editor) HeightOf(pos int) (float64, bool) {
	return e.Frame().HeightOf(pos)
}

// BlockRect implements pagination.Measurer.
func (e *Editor) BlockRect(pos int) (pagination.Rect, bool) {
	return e.Frame().BlockRect(pos)
}

// PosAtCoords implements pagination.Measurer.
func (e *Editor) PosAtCoords(x, y float64) (int, bool) {
	return e.Frame().PosAtCoords(x, y)
}

// CoordsAtPos implements pagination.Measurer.
func (e *Editor) CoordsAtPos(pos int) (pagination.Coords, bool) {
	return e.Frame().CoordsAtPos(pos)
}

// CommitOverlay replaces the overlay widgets. The resulting transaction
// carries no document change and stays out of the history.
func (e *Editor) CommitOverlay(set *pagination.OverlaySet) error {
	e.overlay = set
	e.frame = nil
	e.notify(pagination.Change{Meta: pagination.Meta{SkipHistory: true, OverlayCommit: true}})
	return nil
}

// Split splits the textblock containing pos as one transaction tagged with
// meta.
func (e *Editor) Split(pos int, meta pagination.Meta) error {
	return e.Dispatch(e.Tr().Split(pos).SetMeta(meta))
}
