package api

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/gompdf/pageflow/internal/document"
	"github.com/gompdf/pageflow/internal/parser/html"
)

func fastOptions() []Option {
	return []Option{
		WithDebounce(5 * time.Millisecond),
		WithCooldown(5 * time.Millisecond),
		WithFrameInterval(time.Millisecond),
		WithSettleTimeout(5 * time.Second),
	}
}

func longDocument() *Document {
	return document.New(
		document.NewHeading(1, "Minutes"),
		document.NewParagraph(strings.Repeat("lorem ipsum dolor sit amet ", 300)),
		document.NewParagraph("closing remarks"),
	)
}

func TestSession_SettlesAndSplits(t *testing.T) {
	s := NewSession(longDocument(), fastOptions()...)
	defer s.Close()
	ctx := context.Background()

	res, err := s.Settle(ctx)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if res.PageCount() < 3 {
		t.Fatalf("expected at least 3 pages, got %d", res.PageCount())
	}
	for _, p := range res.Pages {
		if p.Oversized {
			t.Errorf("page %d still oversized after settling", p.Number)
		}
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Splits == 0 || snap.State != "idle" {
		t.Errorf("unexpected snapshot state %q with %d splits", snap.State, snap.Splits)
	}
	var body strings.Builder
	for _, b := range snap.Doc.Blocks[1 : len(snap.Doc.Blocks)-1] {
		body.WriteString(b.Text)
	}
	if body.String() != strings.Repeat("lorem ipsum dolor sit amet ", 300) {
		t.Error("split fragments do not reassemble the paragraph")
	}
	if undone, _ := s.Undo(ctx); undone {
		t.Error("automatic splits must not be undoable")
	}

	data, err := s.PDF(ctx)
	if err != nil {
		t.Fatalf("PDF: %v", err)
	}
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if r.NumPage() != res.PageCount() {
		t.Errorf("expected %d PDF pages, got %d", res.PageCount(), r.NumPage())
	}
}

func TestSession_EditsRepaginate(t *testing.T) {
	s := NewSession(document.New(document.NewParagraph("short")), fastOptions()...)
	defer s.Close()
	ctx := context.Background()

	if _, err := s.Settle(ctx); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	var edits []Edit
	for i := range 50 {
		edits = append(edits, Edit{Op: OpInsertBlock, Index: i + 1, Text: "filler paragraph"})
	}
	if err := s.Apply(ctx, edits...); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	res, err := s.Settle(ctx)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	// 51 lines of 24px fill 35 per page.
	if res.PageCount() != 2 || len(res.Breakpoints) != 1 {
		t.Errorf("expected 2 pages, got %d", res.PageCount())
	}

	if undone, err := s.Undo(ctx); err != nil || !undone {
		t.Fatalf("Undo: %v %v", undone, err)
	}
	if res, _ = s.Settle(ctx); res.PageCount() != 1 {
		t.Errorf("expected 1 page after undo, got %d", res.PageCount())
	}
}

func TestSession_RejectsBadEdits(t *testing.T) {
	s := NewSession(document.New(document.NewParagraph("abc")), fastOptions()...)
	defer s.Close()
	ctx := context.Background()

	if err := s.Apply(ctx, Edit{Op: "rotate"}); err == nil {
		t.Error("expected an unknown op to fail")
	}
	if err := s.Apply(ctx, Edit{Op: OpInsertBlock, Kind: "table"}); err == nil {
		t.Error("expected a table insert to fail")
	}
	if err := s.InsertText(ctx, 99, "x"); !errors.Is(err, document.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	snap, _ := s.Snapshot(ctx)
	if snap.Doc.Blocks[0].Text != "abc" || snap.Version != 0 {
		t.Error("failed edits changed the document")
	}
}

func TestOpenReader_HTMLExport(t *testing.T) {
	src := "<html><head><title>Notes</title><style>p { line-height: 48px }</style></head><body>" +
		strings.Repeat("<p>one line</p>", 30) + "</body></html>"
	s, err := OpenReader(strings.NewReader(src), "notes.html", fastOptions()...)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	res, err := s.Settle(ctx)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	// The document's own stylesheet doubles every line: 17 per page.
	if res.PageCount() != 2 {
		t.Errorf("expected 2 pages, got %d", res.PageCount())
	}

	var buf bytes.Buffer
	if err := s.WriteHTML(ctx, &buf, false); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	out := buf.String()
	if got := strings.Count(out, `class="`+html.ClassDivider+`"`); got != len(res.Breakpoints) {
		t.Errorf("expected %d dividers, got %d", len(res.Breakpoints), got)
	}
	if !strings.Contains(out, "<title>Notes</title>") {
		t.Error("expected the title to survive export")
	}

	buf.Reset()
	if err := s.WriteDOCX(ctx, &buf); err != nil || buf.Len() == 0 {
		t.Errorf("WriteDOCX: %v", err)
	}
}

func TestOpen_DataURL(t *testing.T) {
	s, err := Open(context.Background(), "data:text/markdown,%23%20Title%0A%0Abody", fastOptions()...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Doc.Blocks) != 2 || snap.Doc.Blocks[0].Kind != document.KindHeading {
		t.Errorf("unexpected blocks %+v", snap.Doc.Blocks)
	}

	if _, err := Open(context.Background(), "data:application/zip,xx"); err == nil {
		t.Error("expected an unsupported source to fail")
	}
}

func TestSession_Closed(t *testing.T) {
	s := NewSession(document.New(document.NewParagraph("x")), fastOptions()...)
	s.Close()
	if _, err := s.Settle(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := s.InsertText(context.Background(), 1, "y"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func imageDocument(src string) *Document {
	return document.New(
		&document.Block{Kind: document.KindImage, Src: src, Alt: "chart"},
		document.NewParagraph("caption"),
	)
}

func TestSession_RemoteImageIsSizedOffLoop(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 200, 120))); err != nil {
		t.Fatal(err)
	}
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	s := NewSession(imageDocument(srv.URL+"/chart.png"), fastOptions()...)
	defer s.Close()
	ctx := context.Background()

	// Edits go through while the image is still being fetched.
	editCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Flush(editCtx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := s.InsertText(editCtx, 2, "figure "); err != nil {
		t.Fatalf("InsertText while the image loads: %v", err)
	}
	close(release)

	res, err := s.Settle(ctx)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if got := res.Pages[0].Height; got != 144 {
		t.Errorf("expected the 120px image plus one line, got %v", got)
	}
}

func TestSession_StalledImageServer(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	s := NewSession(imageDocument(srv.URL+"/never.png"), fastOptions()...)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	res, err := s.Settle(ctx)
	if err != nil {
		t.Fatalf("Settle with a stalled image: %v", err)
	}
	if res.PageCount() != 1 || res.Pages[0].Height != 24 {
		t.Errorf("expected the image to count as unmeasured, got %+v", res.Pages)
	}
	if err := s.InsertText(context.Background(), 2, "x"); err != nil {
		t.Errorf("InsertText with a stalled image: %v", err)
	}

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on the image fetch")
	}
}

func TestSession_SandboxRefusesLocalImages(t *testing.T) {
	s := NewSession(imageDocument("/etc/hostname"), append(fastOptions(), WithSandbox())...)
	defer s.Close()

	res, err := s.Settle(context.Background())
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if res.Pages[0].Height != 24 {
		t.Errorf("expected a refused image to stay unmeasured, got %v", res.Pages[0].Height)
	}
}

func TestLoadStylesheet(t *testing.T) {
	css, err := LoadStylesheet(context.Background(), "data:text/css,p%7Bline-height:48px%7D")
	if err != nil {
		t.Fatalf("LoadStylesheet: %v", err)
	}
	if css != "p{line-height:48px}" {
		t.Errorf("unexpected stylesheet %q", css)
	}
	if _, err := LoadStylesheet(context.Background(), "data:text/plain,hello"); err == nil {
		t.Error("expected an error for a non-CSS source")
	}
}
