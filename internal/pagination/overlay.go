package pagination

import (
	"fmt"
	"math"
)

// WidgetKind identifies a piece of page scaffolding.
type WidgetKind string

const (
	// WidgetHeader is the top margin band of a page.
	WidgetHeader WidgetKind = "header"
	// WidgetFill pads a page's content area up to ContentHeight.
	WidgetFill WidgetKind = "fill"
	// WidgetFooter is the bottom margin band carrying the page number.
	WidgetFooter WidgetKind = "footer"
	// WidgetGap is the screen-only band between two sheets.
	WidgetGap WidgetKind = "gap"
	// WidgetDivider is the hidden marker the exporter breaks pages at.
	WidgetDivider WidgetKind = "divider"
)

// Widget sides order widgets sharing a position relative to the content.
const (
	SideDocStart = -1000
	SideBreak    = -1
	SideDocEnd   = 1000
)

// Widget is a non-editable decoration anchored at a document position.
type Widget struct {
	Pos    int
	Side   int
	Kind   WidgetKind
	Page   int
	Height float64
	Label  string
	// ScreenOnly widgets are never exported.
	ScreenOnly bool
	// ExportOnly widgets are invisible on screen.
	ExportOnly bool
}

// OverlaySet is the ordered decoration set of one pass.
type OverlaySet struct {
	Widgets []Widget
}

// Dividers returns the positions of every export page-break marker.
func (s *OverlaySet) Dividers() []int {
	if s == nil {
		return nil
	}
	var out []int
	for _, w := range s.Widgets {
		if w.Kind == WidgetDivider {
			out = append(out, w.Pos)
		}
	}
	return out
}

// Footers returns the footer labels in document order.
func (s *OverlaySet) Footers() []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, w := range s.Widgets {
		if w.Kind == WidgetFooter {
			out = append(out, w.Label)
		}
	}
	return out
}

// ScreenHeightBefore sums the height of every visible widget drawn before
// the content at pos. Export-only widgets take no screen space.
func (s *OverlaySet) ScreenHeightBefore(pos int) float64 {
	if s == nil {
		return 0
	}
	total := 0.0
	for _, w := range s.Widgets {
		if w.ExportOnly {
			continue
		}
		if w.Pos < pos || (w.Pos == pos && w.Side < 0) {
			total += w.Height
		}
	}
	return total
}

// BuildOverlay produces the decoration set for a scan result over a
// document of the given content size.
func BuildOverlay(res *Result, docSize int) *OverlaySet {
	set := &OverlaySet{}
	set.Widgets = append(set.Widgets, Widget{
		Pos:    0,
		Side:   SideDocStart,
		Kind:   WidgetHeader,
		Page:   1,
		Height: Margin,
	})

	for _, bp := range res.Breakpoints {
		set.Widgets = append(set.Widgets,
			Widget{
				Pos:    bp.Pos,
				Side:   SideBreak,
				Kind:   WidgetFill,
				Page:   bp.Page,
				Height: fill(bp.Height),
			},
			Widget{
				Pos:    bp.Pos,
				Side:   SideBreak,
				Kind:   WidgetFooter,
				Page:   bp.Page,
				Height: Margin,
				Label:  footerLabel(bp.Page),
			},
			Widget{
				Pos:        bp.Pos,
				Side:       SideBreak,
				Kind:       WidgetGap,
				Page:       bp.Page,
				Height:     PageGap,
				Label:      fmt.Sprintf("PAGE %d END", bp.Page),
				ScreenOnly: true,
			},
			Widget{
				Pos:        bp.Pos,
				Side:       SideBreak,
				Kind:       WidgetDivider,
				Page:       bp.Page,
				ExportOnly: true,
			},
			Widget{
				Pos:    bp.Pos,
				Side:   SideBreak,
				Kind:   WidgetHeader,
				Page:   bp.Page + 1,
				Height: Margin,
			},
		)
	}

	last := len(res.Breakpoints) + 1
	set.Widgets = append(set.Widgets,
		Widget{
			Pos:    docSize,
			Side:   SideDocEnd,
			Kind:   WidgetFill,
			Page:   last,
			Height: fill(res.TrailingHeight),
		},
		Widget{
			Pos:    docSize,
			Side:   SideDocEnd,
			Kind:   WidgetFooter,
			Page:   last,
			Height: Margin,
			Label:  footerLabel(last),
		},
	)
	return set
}

func fill(used float64) float64 {
	return math.Max(0, ContentHeight-used)
}

func footerLabel(page int) string {
	return fmt.Sprintf("Page %d", page)
}
