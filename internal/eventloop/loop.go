// Package eventloop provides the single-goroutine hosts the pagination
// engine runs on.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gompdf/pageflow/internal/pagination"
)

// DefaultFrameInterval approximates one display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// ErrClosed is returned by Do once the loop has stopped.
var ErrClosed = errors.New("event loop closed")

// Loop runs posted functions one at a time on a single goroutine.
type Loop struct {
	FrameInterval time.Duration

	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// New creates a loop. Call Run to start processing.
func New() *Loop {
	return &Loop{
		FrameInterval: DefaultFrameInterval,
		queue:         make(chan func(), 256),
		done:          make(chan struct{}),
	}
}

// Run processes posted functions until ctx is done or Close is called.
func (l *Loop) Run(ctx context.Context) {
	defer l.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case f := <-l.queue:
			f()
		}
	}
}

// Close stops the loop. Functions still queued are dropped.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

// Post queues f. It reports false when the loop is closed.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- f:
		return true
	case <-l.done:
		return false
	}
}

// Do runs f on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		f()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// AfterFunc runs f on the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, f func()) pagination.Timer {
	return time.AfterFunc(d, func() { l.Post(f) })
}

// RequestFrame runs f on the loop at the next frame boundary.
func (l *Loop) RequestFrame(f func()) {
	l.AfterFunc(l.FrameInterval, f)
}
