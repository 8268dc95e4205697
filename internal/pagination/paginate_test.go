package pagination_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gompdf/pageflow/internal/pagination"
)

func scan(v *fakeView) *pagination.Result {
	return pagination.NewPaginator().Scan(v.Blocks(), v)
}

func TestScan_ShortDocumentIsOnePage(t *testing.T) {
	v := newFakeView(para(120), fixed("heading", 48), para(600))
	res := scan(v)

	if len(res.Breakpoints) != 0 {
		t.Fatalf("expected no breakpoints, got %v", res.Breakpoints)
	}
	if res.PageCount() != 1 {
		t.Errorf("expected 1 page, got %d", res.PageCount())
	}
	if res.Candidate != nil {
		t.Errorf("expected no split candidate, got %+v", res.Candidate)
	}
	if res.TrailingHeight != 48+48+240 {
		t.Errorf("expected trailing height 336, got %v", res.TrailingHeight)
	}
}

func TestScan_ExactBudgetFits(t *testing.T) {
	v := newFakeView(fixed("table", 430), fixed("table", 430), fixed("rule", 24))
	res := scan(v)

	want := []pagination.Breakpoint{{Pos: 2, Page: 1, Height: 860}}
	if d := cmp.Diff(want, res.Breakpoints); d != "" {
		t.Errorf("breakpoints mismatch (-want +got):\n%s", d)
	}
}

func TestScan_BreaksBeforeOverflowingBlock(t *testing.T) {
	// Ten blocks of 120px: seven fit (840px), the eighth starts page 2.
	var blocks []fakeBlock
	for i := 0; i < 10; i++ {
		blocks = append(blocks, fixed("heading", 120))
	}
	v := newFakeView(blocks...)
	res := scan(v)

	want := []pagination.Breakpoint{{Pos: 7, Page: 1, Height: 840}}
	if d := cmp.Diff(want, res.Breakpoints); d != "" {
		t.Errorf("breakpoints mismatch (-want +got):\n%s", d)
	}
	wantPages := []pagination.Page{
		{Number: 1, Start: 0, Height: 840},
		{Number: 2, Start: 7, Height: 360},
	}
	if d := cmp.Diff(wantPages, res.Pages); d != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", d)
	}
}

func TestScan_PageProperties(t *testing.T) {
	var blocks []fakeBlock
	for i := 0; i < 40; i++ {
		switch i % 4 {
		case 0:
			blocks = append(blocks, fixed("heading", 48))
		case 1:
			blocks = append(blocks, para(100+i*37))
		case 2:
			blocks = append(blocks, fixed("table", float64(72+i*5)))
		default:
			blocks = append(blocks, para(59))
		}
	}
	v := newFakeView(blocks...)
	res := scan(v)

	if res.Candidate != nil {
		t.Fatalf("expected no split candidate, got %+v", res.Candidate)
	}
	last := -1
	for i, bp := range res.Breakpoints {
		if bp.Pos <= last {
			t.Errorf("breakpoint %d: position %d not after %d", i, bp.Pos, last)
		}
		if bp.Pos > v.Size() {
			t.Errorf("breakpoint %d: position %d beyond document size %d", i, bp.Pos, v.Size())
		}
		if bp.Page != i+1 {
			t.Errorf("breakpoint %d: expected page %d, got %d", i, i+1, bp.Page)
		}
		last = bp.Pos
	}
	for _, p := range res.Pages {
		if p.Height > pagination.PrintableHeight {
			t.Errorf("page %d: height %v exceeds budget", p.Number, p.Height)
		}
	}
	if res.PageCount() != len(res.Breakpoints)+1 {
		t.Errorf("expected %d pages, got %d", len(res.Breakpoints)+1, res.PageCount())
	}
}

func TestScan_OversizedFirstParagraphRecordsCandidate(t *testing.T) {
	// 3000 chars on a 60-char grid is 50 rows: 1200px.
	v := newFakeView(para(3000), para(60))
	res := scan(v)

	want := &pagination.SplitCandidate{Pos: 0, Size: 3002, Type: pagination.TypeParagraph, TargetY: 35*24 - 2}
	if d := cmp.Diff(want, res.Candidate); d != "" {
		t.Fatalf("candidate mismatch (-want +got):\n%s", d)
	}
	if res.Candidate.TargetY != 838 {
		t.Errorf("expected target 838, got %v", res.Candidate.TargetY)
	}
	// No break before the oversized block; the next block follows it.
	want2 := []pagination.Breakpoint{{Pos: 3002, Page: 1, Height: 1200}}
	if d := cmp.Diff(want2, res.Breakpoints); d != "" {
		t.Errorf("breakpoints mismatch (-want +got):\n%s", d)
	}
	if !res.Pages[0].Oversized {
		t.Error("expected first page flagged oversized")
	}
}

func TestScan_OversizedAfterContentUsesRemainingSpace(t *testing.T) {
	v := newFakeView(fixed("heading", 100), para(3000))
	res := scan(v)

	if res.Candidate == nil {
		t.Fatal("expected a split candidate")
	}
	// 760px remain: 31 lines.
	if res.Candidate.TargetY != 31*24-2 {
		t.Errorf("expected target %d, got %v", 31*24-2, res.Candidate.TargetY)
	}
	if res.Candidate.Pos != 1 {
		t.Errorf("expected candidate at 1, got %d", res.Candidate.Pos)
	}
	if len(res.Breakpoints) != 1 || res.Breakpoints[0].Pos != 1 {
		t.Errorf("expected a break before the oversized paragraph, got %v", res.Breakpoints)
	}
}

func TestScan_NearlyFullPageTargetsFreshPage(t *testing.T) {
	v := newFakeView(fixed("heading", 816), para(3000))
	res := scan(v)

	if res.Candidate == nil {
		t.Fatal("expected a split candidate")
	}
	if res.Candidate.TargetY != 838 {
		t.Errorf("expected a full-page target of 838, got %v", res.Candidate.TargetY)
	}
}

func TestScan_OnlyFirstCandidateWins(t *testing.T) {
	v := newFakeView(para(3000), para(3000))
	res := scan(v)

	if res.Candidate == nil || res.Candidate.Pos != 0 {
		t.Fatalf("expected first paragraph as candidate, got %+v", res.Candidate)
	}
}

func TestScan_NonParagraphIsNeverACandidate(t *testing.T) {
	v := newFakeView(fixed("table", 1500), fixed("heading", 48))
	res := scan(v)

	if res.Candidate != nil {
		t.Errorf("expected no candidate for a table, got %+v", res.Candidate)
	}
	if len(res.Breakpoints) != 1 {
		t.Errorf("expected one breakpoint after the table, got %v", res.Breakpoints)
	}
}

func TestScan_FittingParagraphMovesWhole(t *testing.T) {
	v := newFakeView(fixed("heading", 800), para(300))
	res := scan(v)

	if res.Candidate != nil {
		t.Errorf("expected no candidate, got %+v", res.Candidate)
	}
	if len(res.Breakpoints) != 1 || res.Breakpoints[0].Pos != 1 {
		t.Errorf("expected a break before the paragraph, got %v", res.Breakpoints)
	}
}

func TestScan_SplitStraddling(t *testing.T) {
	v := newFakeView(fixed("heading", 800), para(300))
	p := pagination.NewPaginator()
	p.SplitStraddling = true
	res := p.Scan(v.Blocks(), v)

	if res.Candidate == nil {
		t.Fatal("expected a candidate for the straddling paragraph")
	}
	// 60px remain: 2 lines.
	if res.Candidate.TargetY != 46 {
		t.Errorf("expected target 46, got %v", res.Candidate.TargetY)
	}
}

func TestScan_UnavailableHeightCountsAsZero(t *testing.T) {
	hidden := fixed("image", 5000)
	hidden.hidden = true
	v := newFakeView(fixed("heading", 800), hidden, para(30))
	res := scan(v)

	if len(res.Breakpoints) != 0 {
		t.Errorf("expected no breakpoints, got %v", res.Breakpoints)
	}
	if res.Candidate != nil {
		t.Errorf("expected no candidate, got %+v", res.Candidate)
	}
	if res.TrailingHeight != 824 {
		t.Errorf("expected trailing height 824, got %v", res.TrailingHeight)
	}
}

func TestScan_EmptyDocument(t *testing.T) {
	v := newFakeView()
	res := scan(v)

	if res.PageCount() != 1 || len(res.Breakpoints) != 0 || res.TrailingHeight != 0 {
		t.Errorf("unexpected result for empty document: %+v", res)
	}
}
