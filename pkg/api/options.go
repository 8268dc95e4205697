package api

import (
	"log/slog"
	"time"
)

// Options represents configuration options for a pagination session
type Options struct {
	// Recomputation timing
	Debounce      time.Duration
	Cooldown      time.Duration
	FrameInterval time.Duration
	// SettleTimeout bounds Settle when the caller's context has no deadline.
	SettleTimeout time.Duration

	// SplitStraddling also splits paragraphs that cross a page boundary but
	// would fit on a page of their own.
	SplitStraddling bool

	// Logger receives session and engine diagnostics. Nil discards them.
	Logger *slog.Logger

	// Author stylesheets, applied after any the source document carries
	Stylesheets []string

	// Resource lookup for images and linked sources
	BaseURL       string
	ResourcePaths []string
	// FetchTimeout bounds each remote fetch.
	FetchTimeout time.Duration
	// Sandboxed limits resources to data: URLs and http(s) sources under
	// AllowedBases, and refuses private network hosts.
	Sandboxed    bool
	AllowedBases []string

	// Document metadata
	Title    string
	Author   string
	Subject  string
	Keywords string
}

// Option is a function that modifies Options
type Option func(*Options)

// DefaultOptions returns the default options
func DefaultOptions() Options {
	return Options{
		Debounce:      80 * time.Millisecond,
		Cooldown:      40 * time.Millisecond,
		FrameInterval: 16 * time.Millisecond,
		SettleTimeout: 10 * time.Second,
		FetchTimeout:  10 * time.Second,
	}
}

// WithDebounce sets the quiet period after an edit before pages are
// recomputed
func WithDebounce(d time.Duration) Option {
	return func(o *Options) {
		o.Debounce = d
	}
}

// WithCooldown sets how long the engine waits after a split before it
// measures again
func WithCooldown(d time.Duration) Option {
	return func(o *Options) {
		o.Cooldown = d
	}
}

// WithFrameInterval sets the frame delay before a split is attempted
func WithFrameInterval(d time.Duration) Option {
	return func(o *Options) {
		o.FrameInterval = d
	}
}

// WithSettleTimeout sets the default Settle bound
func WithSettleTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.SettleTimeout = d
	}
}

// WithSplitStraddling enables splitting of every paragraph that crosses a
// page boundary
func WithSplitStraddling(enabled bool) Option {
	return func(o *Options) {
		o.SplitStraddling = enabled
	}
}

// WithLogger sets the logger
func WithLogger(log *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = log
	}
}

// WithStylesheet adds an author stylesheet
func WithStylesheet(css string) Option {
	return func(o *Options) {
		o.Stylesheets = append(o.Stylesheets, css)
	}
}

// WithBaseURL sets the URL or path relative resources resolve against
func WithBaseURL(base string) Option {
	return func(o *Options) {
		o.BaseURL = base
	}
}

// WithResourcePath adds a path to search for resources
func WithResourcePath(path string) Option {
	return func(o *Options) {
		o.ResourcePaths = append(o.ResourcePaths, path)
	}
}

// WithFetchTimeout bounds each remote resource fetch
func WithFetchTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.FetchTimeout = d
	}
}

// WithSandbox restricts resource loading to data: URLs and to public http(s)
// sources under the allowed base URLs. Local files are never read.
func WithSandbox(allowedBases ...string) Option {
	return func(o *Options) {
		o.Sandboxed = true
		o.AllowedBases = append(o.AllowedBases, allowedBases...)
	}
}

// WithTitle sets the document title
func WithTitle(title string) Option {
	return func(o *Options) {
		o.Title = title
	}
}

// WithAuthor sets the document author
func WithAuthor(author string) Option {
	return func(o *Options) {
		o.Author = author
	}
}

// WithSubject sets the document subject
func WithSubject(subject string) Option {
	return func(o *Options) {
		o.Subject = subject
	}
}

// WithKeywords sets the document keywords
func WithKeywords(keywords string) Option {
	return func(o *Options) {
		o.Keywords = keywords
	}
}
