package eventloop

import (
	"sort"
	"time"

	"github.com/gompdf/pageflow/internal/pagination"
)

// Manual is a deterministic host driven by a virtual clock. Nothing runs
// until Advance is called.
type Manual struct {
	FrameInterval time.Duration

	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	owner   *Manual
}

func (t *manualTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return t.owner.remove(t)
}

// NewManual creates a manual loop at virtual time zero.
func NewManual() *Manual {
	return &Manual{FrameInterval: DefaultFrameInterval}
}

// Now returns the elapsed virtual time.
func (m *Manual) Now() time.Duration {
	return m.now
}

// AfterFunc schedules f at Now()+d.
func (m *Manual) AfterFunc(d time.Duration, f func()) pagination.Timer {
	m.seq++
	t := &manualTimer{at: m.now + d, seq: m.seq, f: f, owner: m}
	m.timers = append(m.timers, t)
	return t
}

// RequestFrame schedules f one frame from now.
func (m *Manual) RequestFrame(f func()) {
	m.AfterFunc(m.FrameInterval, f)
}

// Pending returns the number of scheduled callbacks.
func (m *Manual) Pending() int {
	return len(m.timers)
}

// Advance moves the clock forward by d, running every callback that falls
// due in timestamp order. Callbacks scheduled while advancing run too when
// they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	end := m.now + d
	for {
		t := m.next()
		if t == nil || t.at > end {
			break
		}
		m.remove(t)
		t.stopped = true
		m.now = t.at
		t.f()
	}
	m.now = end
}

// RunUntilIdle advances until no callbacks are left or limit elapses.
func (m *Manual) RunUntilIdle(limit time.Duration) {
	end := m.now + limit
	for len(m.timers) > 0 {
		t := m.next()
		if t.at > end {
			break
		}
		m.Advance(t.at - m.now)
	}
}

func (m *Manual) next() *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.Slice(m.timers, func(i, j int) bool {
		if m.timers[i].at != m.timers[j].at {
			return m.timers[i].at < m.timers[j].at
		}
		return m.timers[i].seq < m.timers[j].seq
	})
	return m.timers[0]
}

func (m *Manual) remove(t *manualTimer) bool {
	for i, cur := range m.timers {
		if cur == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}
