package pagination

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// State is the scheduler state of an Engine.
type State int

const (
	StateIdle State = iota
	StateScheduled
	StateMeasuring
	StateSplitting
	StateDefunct
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateMeasuring:
		return "measuring"
	case StateSplitting:
		return "splitting"
	case StateDefunct:
		return "defunct"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options represents options for the pagination engine
type Options struct {
	// Debounce coalesces bursts of edits into one pass.
	Debounce time.Duration
	// Cooldown holds the split guard after a split attempt so the surface
	// can re-render before heights are read again.
	Cooldown time.Duration
	// SplitStraddling splits paragraphs crossing a page boundary even when
	// they would fit on a page of their own.
	SplitStraddling bool
	// Logger receives pass and split diagnostics. Nil discards them.
	Logger *slog.Logger
	// OnIdle is called with the latest result whenever the engine returns
	// to the idle state.
	OnIdle func(*Result)
}

// DefaultOptions returns the default engine options
func DefaultOptions() Options {
	return Options{
		Debounce: 80 * time.Millisecond,
		Cooldown: 40 * time.Millisecond,
	}
}

// Engine keeps the pagination of a live document up to date.
// It is not safe for concurrent use: every method, and every callback it
// hands to the Host, must run on the host loop.
type Engine struct {
	view      View
	host      Host
	options   Options
	paginator *Paginator
	log       *slog.Logger

	timer     Timer
	gen       uint64
	measuring bool
	splitting bool
	pending   bool
	defunct   bool

	result  *Result
	overlay *OverlaySet
	passes  int
	splits  int
}

// NewEngine creates a pagination engine for view running on host
func NewEngine(view View, host Host, options Options) *Engine {
	defaults := DefaultOptions()
	if options.Debounce <= 0 {
		options.Debounce = defaults.Debounce
	}
	if options.Cooldown <= 0 {
		options.Cooldown = defaults.Cooldown
	}
	log := options.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	p := NewPaginator()
	p.SplitStraddling = options.SplitStraddling
	return &Engine{
		view:      view,
		host:      host,
		options:   options,
		paginator: p,
		log:       log,
	}
}

// Start schedules the initial pass.
func (e *Engine) Start() {
	e.schedule()
}

// Update is called by the host after every applied transaction.
func (e *Engine) Update(c Change) {
	if e.defunct {
		return
	}
	if c.Meta.ForcePagination {
		e.schedule()
		return
	}
	if c.Meta.OverlayCommit || !c.DocChanged {
		return
	}
	e.schedule()
}

// Flush cancels the debounce timer and runs a pass immediately.
func (e *Engine) Flush() {
	if e.defunct {
		return
	}
	e.stopTimer()
	e.runPass()
}

// Destroy cancels pending work. Callbacks already queued on the host
// become no-ops.
func (e *Engine) Destroy() {
	e.stopTimer()
	e.defunct = true
	e.splitting = false
	e.pending = false
	e.measuring = false
}

// State reports the scheduler state.
func (e *Engine) State() State {
	switch {
	case e.defunct:
		return StateDefunct
	case e.measuring:
		return StateMeasuring
	case e.splitting:
		return StateSplitting
	case e.timer != nil:
		return StateScheduled
	}
	return StateIdle
}

// Result returns the result of the latest pass, or nil before the first.
func (e *Engine) Result() *Result {
	return e.result
}

// Overlay returns the overlay set committed by the latest pass.
func (e *Engine) Overlay() *OverlaySet {
	return e.overlay
}

// Passes returns the number of completed layout passes.
func (e *Engine) Passes() int {
	return e.passes
}

// Splits returns the number of committed splits.
func (e *Engine) Splits() int {
	return e.splits
}

func (e *Engine) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
}

func (e *Engine) schedule() {
	if e.defunct {
		return
	}
	e.stopTimer()
	gen := e.gen
	e.timer = e.host.AfterFunc(e.options.Debounce, func() {
		// A stopped timer may still have been queued on the loop.
		if e.defunct || gen != e.gen {
			return
		}
		e.timer = nil
		e.runPass()
	})
}

func (e *Engine) runPass() {
	if e.defunct {
		return
	}
	if e.splitting {
		e.pending = true
		return
	}

	e.measuring = true
	res := e.paginator.Scan(e.view.Blocks(), e.view)
	set := BuildOverlay(res, e.view.Size())
	e.result = res
	e.overlay = set
	e.passes++
	if err := e.view.CommitOverlay(set); err != nil {
		e.log.Warn("overlay commit failed", "error", err)
	}
	e.measuring = false

	e.log.Debug("pagination pass",
		"pass", e.passes,
		"pages", res.PageCount(),
		"breakpoints", len(res.Breakpoints),
		"split_candidate", res.Candidate != nil,
	)

	if res.Candidate == nil {
		e.idle()
		return
	}

	e.splitting = true
	cand := *res.Candidate
	e.host.RequestFrame(func() {
		e.resolve(&cand)
	})
}

func (e *Engine) resolve(c *SplitCandidate) {
	if e.defunct {
		e.splitting = false
		return
	}
	defer e.host.AfterFunc(e.options.Cooldown, e.release)

	pos, err := e.trySplit(c)
	switch {
	case err == nil:
		e.splits++
		e.log.Debug("split block", "block", c.Pos, "at", pos)
	case errors.Is(err, ErrNoRect), errors.Is(err, ErrUnmapped), errors.Is(err, ErrNotInterior):
		e.log.Debug("split aborted", "block", c.Pos, "reason", err)
	default:
		e.log.Error("split failed", "block", c.Pos, "error", err)
	}
}

// trySplit runs the resolver, converting a panicking surface into an error
// so the guard is still released.
func (e *Engine) trySplit(c *SplitCandidate) (pos int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("split panicked: %v", r)
		}
	}()
	return Resolve(e.view, c)
}

func (e *Engine) release() {
	if e.defunct {
		return
	}
	e.splitting = false
	if e.pending {
		e.pending = false
		e.schedule()
		return
	}
	e.idle()
}

func (e *Engine) idle() {
	if e.State() != StateIdle || e.options.OnIdle == nil {
		return
	}
	e.options.OnIdle(e.result)
}
