package eventloop

import (
	"context"
	"testing"
	"time"
)

func TestManual_RunsInTimestampOrder(t *testing.T) {
	m := NewManual()
	var got []string
	m.AfterFunc(30*time.Millisecond, func() { got = append(got, "c") })
	m.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })
	m.AfterFunc(20*time.Millisecond, func() {
		got = append(got, "b")
		m.AfterFunc(5*time.Millisecond, func() { got = append(got, "b2") })
	})

	m.Advance(25 * time.Millisecond)
	if want := []string{"a", "b", "b2"}; !equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	m.Advance(10 * time.Millisecond)
	if want := []string{"a", "b", "b2", "c"}; !equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if m.Now() != 35*time.Millisecond {
		t.Errorf("expected clock at 35ms, got %v", m.Now())
	}
}

func TestManual_StopCancels(t *testing.T) {
	m := NewManual()
	ran := false
	tm := m.AfterFunc(10*time.Millisecond, func() { ran = true })
	if !tm.Stop() {
		t.Fatal("expected Stop to report a pending timer")
	}
	if tm.Stop() {
		t.Error("expected second Stop to report false")
	}
	m.Advance(time.Second)
	if ran {
		t.Error("stopped timer ran")
	}
	if m.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", m.Pending())
	}
}

func TestLoop_DoRunsOnLoop(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	n := 0
	for i := 0; i < 10; i++ {
		if err := l.Do(ctx, func() { n++ }); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	if n != 10 {
		t.Errorf("expected 10, got %d", n)
	}

	fired := make(chan struct{})
	l.AfterFunc(time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer callback never ran")
	}

	l.Close()
	if err := l.Do(ctx, func() {}); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
