package pagination_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gompdf/pageflow/internal/eventloop"
	"github.com/gompdf/pageflow/internal/pagination"
)

func newEngine(v *fakeView, opts pagination.Options) (*pagination.Engine, *eventloop.Manual) {
	loop := eventloop.NewManual()
	e := pagination.NewEngine(v, loop, opts)
	v.onChange = e.Update
	return e, loop
}

func TestEngine_DebounceCoalescesEdits(t *testing.T) {
	v := newFakeView(para(300))
	e, loop := newEngine(v, pagination.DefaultOptions())

	for i := 0; i < 10; i++ {
		v.edit()
		loop.Advance(7 * time.Millisecond)
	}
	if e.Passes() != 0 {
		t.Fatalf("expected no pass while edits keep arriving, got %d", e.Passes())
	}
	if e.State() != pagination.StateScheduled {
		t.Errorf("expected scheduled, got %v", e.State())
	}

	loop.Advance(80 * time.Millisecond)
	if e.Passes() != 1 {
		t.Errorf("expected exactly one pass, got %d", e.Passes())
	}
	if v.commits != 1 {
		t.Errorf("expected one overlay commit, got %d", v.commits)
	}
	if e.State() != pagination.StateIdle {
		t.Errorf("expected idle, got %v", e.State())
	}
}

func TestEngine_OverlayCommitDoesNotRetrigger(t *testing.T) {
	v := newFakeView(para(300))
	e, loop := newEngine(v, pagination.DefaultOptions())

	e.Start()
	loop.Advance(time.Second)
	if e.Passes() != 1 {
		t.Errorf("expected a single pass, got %d", e.Passes())
	}

	// Selection-only transactions do not trigger a pass either.
	e.Update(pagination.Change{})
	loop.Advance(time.Second)
	if e.Passes() != 1 {
		t.Errorf("expected no pass for a non-document change, got %d", e.Passes())
	}
}

func TestEngine_SplitsOversizedParagraphAndConverges(t *testing.T) {
	v := newFakeView(para(3000), para(120))
	var idle []*pagination.Result
	opts := pagination.DefaultOptions()
	opts.OnIdle = func(r *pagination.Result) { idle = append(idle, r) }
	e, loop := newEngine(v, opts)

	e.Start()
	loop.Advance(80 * time.Millisecond)
	if e.Passes() != 1 {
		t.Fatalf("expected first pass, got %d", e.Passes())
	}
	if e.State() != pagination.StateSplitting {
		t.Fatalf("expected splitting, got %v", e.State())
	}
	if len(v.splitAt) != 0 {
		t.Fatal("split must wait for the next frame")
	}

	loop.Advance(eventloop.DefaultFrameInterval)
	if len(v.splitAt) != 1 {
		t.Fatalf("expected one split, got %v", v.splitAt)
	}

	loop.RunUntilIdle(time.Second)
	if e.Passes() != 2 {
		t.Errorf("expected a forced follow-up pass, got %d passes", e.Passes())
	}
	if e.Splits() != 1 {
		t.Errorf("expected 1 split, got %d", e.Splits())
	}
	if e.State() != pagination.StateIdle {
		t.Errorf("expected idle, got %v", e.State())
	}

	res := e.Result()
	if res.Candidate != nil {
		t.Errorf("expected no candidate after convergence, got %+v", res.Candidate)
	}
	for _, p := range res.Pages {
		if p.Height > pagination.PrintableHeight {
			t.Errorf("page %d: height %v exceeds budget", p.Number, p.Height)
		}
	}
	want := []pagination.Breakpoint{{Pos: 2042, Page: 1, Height: 816}}
	if d := cmp.Diff(want, res.Breakpoints); d != "" {
		t.Errorf("breakpoints mismatch (-want +got):\n%s", d)
	}
	if len(idle) != 1 || idle[0] != res {
		t.Errorf("expected one idle notification with the final result, got %d", len(idle))
	}
}

func TestEngine_RepeatedSplitsOfHugeParagraph(t *testing.T) {
	// 200 rows: 4800px, needs several rounds.
	v := newFakeView(para(12000))
	e, loop := newEngine(v, pagination.DefaultOptions())

	e.Start()
	loop.RunUntilIdle(10 * time.Second)

	if e.Result().Candidate != nil {
		t.Fatalf("expected convergence, still have candidate %+v", e.Result().Candidate)
	}
	for i, b := range v.blocks {
		if h := v.heightOf(b); h > pagination.PrintableHeight {
			t.Errorf("fragment %d: %vpx exceeds budget", i, h)
		}
	}
	if e.Splits() != len(v.blocks)-1 {
		t.Errorf("expected %d splits, got %d", len(v.blocks)-1, e.Splits())
	}
}

func TestEngine_EditDuringSplitRunsAfterCooldown(t *testing.T) {
	v := newFakeView(para(3000))
	opts := pagination.DefaultOptions()
	opts.Debounce = 10 * time.Millisecond
	opts.Cooldown = 200 * time.Millisecond
	e, loop := newEngine(v, opts)

	e.Start()
	loop.Advance(10 * time.Millisecond) // pass 1, candidate
	loop.Advance(16 * time.Millisecond) // split, forced pass armed
	loop.Advance(10 * time.Millisecond) // forced timer fires while guarded
	if e.Passes() != 1 {
		t.Fatalf("expected pass to be deferred while splitting, got %d", e.Passes())
	}
	if e.State() != pagination.StateSplitting {
		t.Fatalf("expected splitting, got %v", e.State())
	}

	loop.RunUntilIdle(time.Second)
	if e.Passes() != 2 {
		t.Errorf("expected deferred pass after cooldown, got %d", e.Passes())
	}
	if e.State() != pagination.StateIdle {
		t.Errorf("expected idle, got %v", e.State())
	}
}

func TestEngine_FailedSplitReleasesGuard(t *testing.T) {
	v := newFakeView(para(3000))
	v.splitErr = errors.New("locked")
	e, loop := newEngine(v, pagination.DefaultOptions())

	e.Start()
	loop.RunUntilIdle(time.Second)
	if e.Splits() != 0 {
		t.Errorf("expected no split, got %d", e.Splits())
	}
	if e.State() != pagination.StateIdle {
		t.Fatalf("expected guard released, got %v", e.State())
	}

	// The next edit retries.
	v.splitErr = nil
	v.edit()
	loop.RunUntilIdle(time.Second)
	if e.Splits() != 1 {
		t.Errorf("expected retry to split, got %d", e.Splits())
	}
}

type panickyView struct{ *fakeView }

func (p panickyView) Split(int, pagination.Meta) error { panic("surface gone") }

func TestEngine_PanickingSplitIsContained(t *testing.T) {
	v := newFakeView(para(3000))
	loop := eventloop.NewManual()
	e := pagination.NewEngine(panickyView{v}, loop, pagination.DefaultOptions())

	e.Start()
	loop.RunUntilIdle(time.Second)
	if e.State() != pagination.StateIdle {
		t.Errorf("expected idle after contained panic, got %v", e.State())
	}
}

func TestEngine_DestroyCancelsPendingWork(t *testing.T) {
	v := newFakeView(para(3000))
	e, loop := newEngine(v, pagination.DefaultOptions())

	e.Start()
	loop.Advance(80 * time.Millisecond) // candidate found, frame requested
	e.Destroy()
	loop.RunUntilIdle(time.Second)

	if len(v.splitAt) != 0 {
		t.Errorf("expected no split after destroy, got %v", v.splitAt)
	}
	if e.State() != pagination.StateDefunct {
		t.Errorf("expected defunct, got %v", e.State())
	}
	v.edit()
	if loop.Pending() != 0 {
		t.Errorf("expected updates ignored after destroy, %d callbacks pending", loop.Pending())
	}
}

func TestEngine_DestroyStopsDebounce(t *testing.T) {
	v := newFakeView(para(30))
	e, loop := newEngine(v, pagination.DefaultOptions())

	v.edit()
	e.Destroy()
	loop.Advance(time.Second)
	if e.Passes() != 0 {
		t.Errorf("expected no pass, got %d", e.Passes())
	}
}

func TestEngine_IdempotentPasses(t *testing.T) {
	v := newFakeView(fixed("table", 700), para(600), fixed("rule", 24), para(900))
	e, loop := newEngine(v, pagination.DefaultOptions())

	e.Flush()
	first := e.Overlay()
	firstRes := e.Result()
	for i := 0; i < 3; i++ {
		e.Flush()
		if d := cmp.Diff(first, e.Overlay()); d != "" {
			t.Fatalf("overlay changed on pass %d:\n%s", i+2, d)
		}
		if d := cmp.Diff(firstRes, e.Result()); d != "" {
			t.Fatalf("result changed on pass %d:\n%s", i+2, d)
		}
	}
	if loop.Pending() != 0 {
		t.Errorf("expected no follow-up work, got %d callbacks", loop.Pending())
	}
}
