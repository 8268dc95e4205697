package pageflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gompdf/pageflow/pkg/api"
)

type Session = api.Session
type Snapshot = api.Snapshot
type Options = api.Options
type Option = api.Option
type Edit = api.Edit
type Document = api.Document
type Block = api.Block
type Result = api.Result
type Page = api.Page
type Breakpoint = api.Breakpoint
type PDFStats = api.PDFStats

var ErrClosed = api.ErrClosed

func NewSession(doc *Document, opts ...Option) *Session { return api.NewSession(doc, opts...) }
func Open(ctx context.Context, src string, opts ...Option) (*Session, error) {
	return api.Open(ctx, src, opts...)
}
func DefaultOptions() Options { return api.DefaultOptions() }

var (
	OpenReader          = api.OpenReader
	LoadStylesheet      = api.LoadStylesheet
	WithDebounce        = api.WithDebounce
	WithCooldown        = api.WithCooldown
	WithFrameInterval   = api.WithFrameInterval
	WithSettleTimeout   = api.WithSettleTimeout
	WithSplitStraddling = api.WithSplitStraddling
	WithLogger          = api.WithLogger
	WithStylesheet      = api.WithStylesheet
	WithBaseURL         = api.WithBaseURL
	WithResourcePath    = api.WithResourcePath
	WithTitle           = api.WithTitle
	WithAuthor          = api.WithAuthor
	WithSubject         = api.WithSubject
	WithKeywords        = api.WithKeywords
	WithFetchTimeout    = api.WithFetchTimeout
	WithSandbox         = api.WithSandbox
)

const (
	OpInsertText  = api.OpInsertText
	OpDelete      = api.OpDelete
	OpSplit       = api.OpSplit
	OpInsertBlock = api.OpInsertBlock
	OpRemoveBlock = api.OpRemoveBlock
)

// ConvertFile opens src, waits for its pagination to converge and writes a
// PDF to outputPath.
func ConvertFile(ctx context.Context, src, outputPath string, opts ...Option) (PDFStats, error) {
	s, err := Open(ctx, src, opts...)
	if err != nil {
		return PDFStats{}, err
	}
	defer s.Close()
	if _, err := s.Settle(ctx); err != nil {
		return PDFStats{}, err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return PDFStats{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return PDFStats{}, fmt.Errorf("failed to create %s: %w", outputPath, err)
	}
	stats, err := s.WritePDF(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return stats, err
}
