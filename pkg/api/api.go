// Package api is the public entry point of pageflow: a Session holds one
// live document, keeps its pagination converged in the background and
// exports it with the same page breaks the engine computed.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gompdf/pageflow/internal/document"
	"github.com/gompdf/pageflow/internal/editor"
	"github.com/gompdf/pageflow/internal/eventloop"
	"github.com/gompdf/pageflow/internal/layout"
	"github.com/gompdf/pageflow/internal/pagination"
	"github.com/gompdf/pageflow/internal/parser"
	"github.com/gompdf/pageflow/internal/parser/css"
	"github.com/gompdf/pageflow/internal/parser/docx"
	"github.com/gompdf/pageflow/internal/parser/html"
	"github.com/gompdf/pageflow/internal/render/pdf"
	"github.com/gompdf/pageflow/internal/res"
	"github.com/gompdf/pageflow/internal/style"
)

type (
	Document   = document.Document
	Block      = document.Block
	Result     = pagination.Result
	Page       = pagination.Page
	Breakpoint = pagination.Breakpoint
	PDFStats   = pdf.Stats
)

// ErrClosed is returned once a session has been closed.
var ErrClosed = errors.New("session closed")

// closeTimeout bounds how long Close waits for the loop to stop the engine.
const closeTimeout = 5 * time.Second

// Session is one paginated document. Its methods are safe for concurrent
// use; every editor and engine call is serialized on the session's loop.
type Session struct {
	options Options
	log     *slog.Logger
	loader  *res.Loader
	layout  *layout.Engine
	loop    *eventloop.Loop
	// cancel stops resource fetches started for layout.
	cancel context.CancelFunc
	title  string

	// Owned by the loop goroutine.
	editor  *editor.Editor
	engine  *pagination.Engine
	waiters []chan struct{}
}

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	Doc     *Document
	Overlay *pagination.OverlaySet
	// Result is nil until the first pass has run.
	Result  *Result
	Version int
	Passes  int
	Splits  int
	State   string
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

func newLoader(o Options, base string) *res.Loader {
	if o.BaseURL != "" {
		base = o.BaseURL
	}
	loader := res.NewLoader(base)
	loader.SetTimeout(o.FetchTimeout)
	if o.Sandboxed {
		if err := loader.Sandbox(o.AllowedBases...); err != nil {
			o.Logger.Warn("ignoring allowed bases", "error", err)
		}
		return loader
	}
	for _, p := range o.ResourcePaths {
		loader.AddSearchPath(p)
	}
	return loader
}

// LoadStylesheet reads a stylesheet from a path, http(s) URL or data: URL,
// for use with WithStylesheet.
func LoadStylesheet(ctx context.Context, src string) (string, error) {
	r, err := res.NewLoader("").LoadCSS(ctx, src)
	if err != nil {
		return "", fmt.Errorf("failed to load stylesheet %s: %w", src, err)
	}
	return r.GetString(), nil
}

// NewSession starts a session for doc.
func NewSession(doc *Document, opts ...Option) *Session {
	o := buildOptions(opts)
	return start(o, newLoader(o, ""), &parser.Source{Doc: doc})
}

// Open loads src (a path, URL or data: URL) and starts a session for it.
// The importer is picked from the source's extension or media type.
func Open(ctx context.Context, src string, opts ...Option) (*Session, error) {
	o := buildOptions(opts)
	loader := newLoader(o, src)
	r, err := loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", src, err)
	}
	source, err := parse(r.GetReader(), r.Filename())
	if err != nil {
		return nil, err
	}
	return start(o, loader, source), nil
}

// OpenReader imports a document read from r. filename selects the importer.
func OpenReader(r io.Reader, filename string, opts ...Option) (*Session, error) {
	o := buildOptions(opts)
	source, err := parse(r, filename)
	if err != nil {
		return nil, err
	}
	return start(o, newLoader(o, ""), source), nil
}

func parse(r io.Reader, filename string) (*parser.Source, error) {
	p, err := parser.ForFile(filename)
	if err != nil {
		return nil, err
	}
	source, err := p.Parse(r, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	return source, nil
}

func start(o Options, loader *res.Loader, source *parser.Source) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	styles := style.NewStyleEngine()
	for _, sheet := range source.Styles {
		styles.AddStylesheet(sheet)
	}
	for _, sheet := range o.Stylesheets {
		styles.AddStylesheet(css.ParseString(sheet))
	}

	doc := source.Doc
	if doc == nil {
		doc = document.New()
	}
	title := o.Title
	if title == "" {
		title = doc.Title
	}

	s := &Session{
		options: o,
		log:     o.Logger,
		loader:  loader,
		loop:    eventloop.New(),
		cancel:  cancel,
		title:   title,
	}
	if o.FrameInterval > 0 {
		s.loop.FrameInterval = o.FrameInterval
	}
	s.layout = layout.NewEngine(styles, layout.Options{
		Images: loader.Sizer(ctx, s.imageReady),
		Logger: o.Logger,
	})
	s.editor = editor.New(doc, s.layout, o.Logger)
	s.engine = pagination.NewEngine(s.editor, s.loop, pagination.Options{
		Debounce:        o.Debounce,
		Cooldown:        o.Cooldown,
		SplitStraddling: o.SplitStraddling,
		Logger:          o.Logger,
		OnIdle:          s.onIdle,
	})
	s.editor.OnChange(s.engine.Update)

	go s.loop.Run(context.Background())
	s.loop.Post(s.engine.Start)
	s.log.Debug("session started", "blocks", len(doc.Blocks), "size", doc.Size())
	return s
}

// Close stops pagination and the session loop. In-flight resource fetches
// are cancelled first so the loop is free to run the teardown.
func (s *Session) Close() {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := s.loop.Do(ctx, s.engine.Destroy); err != nil && !errors.Is(err, eventloop.ErrClosed) {
		s.log.Warn("engine not stopped before close", "error", err)
	}
	s.loop.Close()
}

// imageReady runs on fetch goroutines once a remote image has a size.
func (s *Session) imageReady(src string) {
	s.log.Debug("image sized", "src", src)
	s.loop.Post(s.editor.Remeasure)
}

func (s *Session) do(ctx context.Context, f func()) error {
	err := s.loop.Do(ctx, f)
	if errors.Is(err, eventloop.ErrClosed) {
		return ErrClosed
	}
	return err
}

func (s *Session) onIdle(*pagination.Result) {
	for _, w := range s.waiters {
		close(w)
	}
	s.waiters = nil
}

// Settle waits until pagination has converged: no pass is scheduled, no
// split is pending and the latest result reflects every edit. Remote images
// still being fetched are waited for; if ctx ends first they stay
// unmeasured and the converged result is returned.
func (s *Session) Settle(ctx context.Context) (*Result, error) {
	if _, ok := ctx.Deadline(); !ok && s.options.SettleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.SettleTimeout)
		defer cancel()
	}

	for {
		gen := s.loader.SizeGen()
		res, err := s.waitIdle(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.loader.WaitSizes(ctx); err != nil {
			s.log.Warn("settled without pending images", "error", err)
			return res, nil
		}
		if s.loader.SizeGen() == gen {
			return res, nil
		}
	}
}

// waitIdle returns the result of the first loop turn that finds the engine
// idle.
func (s *Session) waitIdle(ctx context.Context) (*Result, error) {
	for {
		var res *Result
		done := make(chan struct{})
		err := s.do(ctx, func() {
			if s.engine.State() == pagination.StateIdle && s.engine.Result() != nil {
				res = s.engine.Result()
				return
			}
			s.waiters = append(s.waiters, done)
		})
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return nil, fmt.Errorf("pagination did not settle: %w", ctx.Err())
		}
	}
}

// Flush runs a pass now instead of waiting for the debounce.
func (s *Session) Flush(ctx context.Context) error {
	return s.do(ctx, s.engine.Flush)
}

// Snapshot returns a copy of the current document, overlay and result.
func (s *Session) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap *Snapshot
	err := s.do(ctx, func() {
		snap = &Snapshot{
			Doc:     s.editor.Doc().Clone(),
			Overlay: s.editor.Overlay(),
			Result:  s.engine.Result(),
			Version: s.editor.Version(),
			Passes:  s.engine.Passes(),
			Splits:  s.engine.Splits(),
			State:   s.engine.State().String(),
		}
	})
	return snap, err
}

// Title returns the document title used for exports.
func (s *Session) Title() string {
	return s.title
}

// Apply runs edits as one undoable transaction.
func (s *Session) Apply(ctx context.Context, edits ...Edit) error {
	var err error
	if doErr := s.do(ctx, func() {
		tr := s.editor.Tr()
		for _, e := range edits {
			if err = e.apply(tr); err != nil {
				return
			}
		}
		err = s.editor.Dispatch(tr)
	}); doErr != nil {
		return doErr
	}
	return err
}

// InsertText inserts text at pos.
func (s *Session) InsertText(ctx context.Context, pos int, text string) error {
	return s.Apply(ctx, Edit{Op: OpInsertText, Pos: pos, Text: text})
}

// Delete removes the text between from and to inside one textblock.
func (s *Session) Delete(ctx context.Context, from, to int) error {
	return s.Apply(ctx, Edit{Op: OpDelete, From: from, To: to})
}

// Replace swaps the whole document.
func (s *Session) Replace(ctx context.Context, doc *Document) error {
	var err error
	if doErr := s.do(ctx, func() {
		err = s.editor.Dispatch(s.editor.Tr().ReplaceDoc(doc))
	}); doErr != nil {
		return doErr
	}
	return err
}

// Undo reverts the latest undoable transaction. It reports false when the
// history is empty.
func (s *Session) Undo(ctx context.Context) (bool, error) {
	var undone bool
	err := s.do(ctx, func() { undone = s.editor.Undo() })
	return undone, err
}

// WritePDF exports the current pages as PDF.
func (s *Session) WritePDF(ctx context.Context, w io.Writer) (PDFStats, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return PDFStats{}, err
	}
	frame := s.layout.Layout(snap.Doc, nil)
	r := pdf.NewRenderer(s.loader, s.log)
	return r.Render(ctx, w, frame, snap.Overlay, pdf.RenderOptions{
		Title:    s.title,
		Author:   s.options.Author,
		Subject:  s.options.Subject,
		Keywords: s.options.Keywords,
		Creator:  "pageflow",
		Producer: "pageflow",
	})
}

// PDF returns the PDF export as bytes.
func (s *Session) PDF(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WritePDF(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteHTML exports the document as HTML. The print form carries hidden
// page dividers; the screen form carries the visible page bands.
func (s *Session) WriteHTML(ctx context.Context, w io.Writer, screen bool) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	snap.Doc.Title = s.title
	return html.Render(w, snap.Doc, snap.Overlay, html.RenderOptions{Screen: screen})
}

// WriteDOCX exports the document as a Word file with a page break at each
// divider.
func (s *Session) WriteDOCX(ctx context.Context, w io.Writer) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	return docx.Render(w, snap.Doc, snap.Overlay)
}
