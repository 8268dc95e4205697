package pagination_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gompdf/pageflow/internal/pagination"
)

func TestBuildOverlay_SinglePage(t *testing.T) {
	res := &pagination.Result{
		Pages:          []pagination.Page{{Number: 1, Height: 300}},
		TrailingHeight: 300,
	}
	set := pagination.BuildOverlay(res, 40)

	want := []pagination.Widget{
		{Pos: 0, Side: pagination.SideDocStart, Kind: pagination.WidgetHeader, Page: 1, Height: 96},
		{Pos: 40, Side: pagination.SideDocEnd, Kind: pagination.WidgetFill, Page: 1, Height: 564},
		{Pos: 40, Side: pagination.SideDocEnd, Kind: pagination.WidgetFooter, Page: 1, Height: 96, Label: "Page 1"},
	}
	if d := cmp.Diff(want, set.Widgets); d != "" {
		t.Errorf("widgets mismatch (-want +got):\n%s", d)
	}
	if got := set.Footers(); len(got) != 1 || got[0] != "Page 1" {
		t.Errorf("expected exactly one footer %q, got %v", "Page 1", got)
	}
	if len(set.Dividers()) != 0 {
		t.Errorf("expected no dividers, got %v", set.Dividers())
	}
}

func TestBuildOverlay_BreakSequence(t *testing.T) {
	res := &pagination.Result{
		Breakpoints: []pagination.Breakpoint{
			{Pos: 10, Page: 1, Height: 840},
			{Pos: 25, Page: 2, Height: 860},
		},
		TrailingHeight: 900,
	}
	set := pagination.BuildOverlay(res, 30)

	var kinds []pagination.WidgetKind
	for _, w := range set.Widgets {
		kinds = append(kinds, w.Kind)
	}
	wantKinds := []pagination.WidgetKind{
		pagination.WidgetHeader,
		pagination.WidgetFill, pagination.WidgetFooter, pagination.WidgetGap, pagination.WidgetDivider, pagination.WidgetHeader,
		pagination.WidgetFill, pagination.WidgetFooter, pagination.WidgetGap, pagination.WidgetDivider, pagination.WidgetHeader,
		pagination.WidgetFill, pagination.WidgetFooter,
	}
	if d := cmp.Diff(wantKinds, kinds); d != "" {
		t.Fatalf("widget order mismatch (-want +got):\n%s", d)
	}

	if set.Widgets[1].Height != 24 {
		t.Errorf("expected first fill 24px, got %v", set.Widgets[1].Height)
	}
	if set.Widgets[6].Height != 4 {
		t.Errorf("expected second fill 4px, got %v", set.Widgets[6].Height)
	}
	// An oversized last page never gets a negative fill.
	if set.Widgets[11].Height != 0 {
		t.Errorf("expected trailing fill clamped to 0, got %v", set.Widgets[11].Height)
	}

	gap := set.Widgets[3]
	if !gap.ScreenOnly || gap.Label != "PAGE 1 END" || gap.Height != pagination.PageGap {
		t.Errorf("unexpected gap widget %+v", gap)
	}
	div := set.Widgets[4]
	if !div.ExportOnly || div.Height != 0 {
		t.Errorf("unexpected divider widget %+v", div)
	}
	if d := cmp.Diff([]int{10, 25}, set.Dividers()); d != "" {
		t.Errorf("dividers mismatch (-want +got):\n%s", d)
	}
	if d := cmp.Diff([]string{"Page 1", "Page 2", "Page 3"}, set.Footers()); d != "" {
		t.Errorf("footers mismatch (-want +got):\n%s", d)
	}
	if set.Widgets[5].Page != 2 || set.Widgets[10].Page != 3 {
		t.Errorf("expected next-page headers for pages 2 and 3")
	}
}

func TestOverlaySet_ScreenHeightBefore(t *testing.T) {
	res := &pagination.Result{
		Breakpoints:    []pagination.Breakpoint{{Pos: 10, Page: 1, Height: 800}},
		TrailingHeight: 100,
	}
	set := pagination.BuildOverlay(res, 20)

	if got := set.ScreenHeightBefore(0); got != 96 {
		t.Errorf("expected 96 before the first block, got %v", got)
	}
	// header + fill(64) + footer + gap + next header; the divider is invisible.
	if got := set.ScreenHeightBefore(10); got != 96+64+96+48+96 {
		t.Errorf("expected %v before the second page, got %v", 96+64+96+48+96, got)
	}
}

func TestBuildOverlay_Idempotent(t *testing.T) {
	v := newFakeView(para(2000), fixed("table", 500), para(1200), fixed("rule", 24))
	p := pagination.NewPaginator()

	first := pagination.BuildOverlay(p.Scan(v.Blocks(), v), v.Size())
	for i := 0; i < 5; i++ {
		res := p.Scan(v.Blocks(), v)
		set := pagination.BuildOverlay(res, v.Size())
		if d := cmp.Diff(first, set); d != "" {
			t.Fatalf("pass %d differs (-first +got):\n%s", i, d)
		}
	}
}
