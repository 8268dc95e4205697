package pagination

import "math"

// Breakpoint is a document position at which a page boundary is inserted.
type Breakpoint struct {
	// Pos is the position of the first block of the next page.
	Pos int
	// Page is the number of the page that ends here.
	Page int
	// Height is the accumulated content height of that page.
	Height float64
}

// Page summarizes one computed page.
type Page struct {
	Number int
	// Start is the position of the first block on the page.
	Start int
	// Height is the accumulated content height.
	Height float64
	// Oversized is set when a single block overflows the page and is
	// waiting to be split.
	Oversized bool
}

// SplitCandidate is an oversized paragraph plus the estimated cut target.
type SplitCandidate struct {
	Pos  int
	Size int
	Type string
	// TargetY is the cut offset relative to the block's top edge.
	TargetY float64
}

// Result is the outcome of one layout scan.
type Result struct {
	Breakpoints []Breakpoint
	Pages       []Page
	// TrailingHeight is the content height of the last page.
	TrailingHeight float64
	// Candidate is nil when no block needs splitting.
	Candidate *SplitCandidate
}

// PageCount returns the number of pages.
func (r *Result) PageCount() int {
	return len(r.Pages)
}

// Paginator partitions top-level blocks into pages
type Paginator struct {
	// Budget is the printable height of one page.
	Budget float64
	// LineHeight is the grid used to estimate split targets.
	LineHeight float64
	// SplitStraddling also splits paragraphs that would fit on a fresh page
	// but not in the space left on the current one.
	SplitStraddling bool
}

// NewPaginator creates a paginator using the fixed page geometry
func NewPaginator() *Paginator {
	return &Paginator{
		Budget:     PrintableHeight,
		LineHeight: LineHeight,
	}
}

// Scan walks blocks in document order and decides where pages end.
// Heights come from m and are never cached; a missing height counts as 0.
func (p *Paginator) Scan(blocks []Block, m Measurer) *Result {
	res := &Result{}
	running := 0.0
	page := Page{Number: 1}
	if len(blocks) > 0 {
		page.Start = blocks[0].Pos
	}

	for _, b := range blocks {
		h, ok := m.HeightOf(b.Pos)
		if !ok || h < 0 || math.IsNaN(h) {
			h = 0
		}

		if running+h <= p.Budget {
			running += h
			continue
		}

		if res.Candidate == nil && b.Type == TypeParagraph &&
			(running == 0 || h > p.Budget || p.straddles(running)) {
			res.Candidate = p.candidate(b, running)
		}

		if running == 0 {
			// Nothing to break before: the block opens this page on its own.
			page.Oversized = true
			running = h
			continue
		}

		res.Breakpoints = append(res.Breakpoints, Breakpoint{
			Pos:    b.Pos,
			Page:   page.Number,
			Height: running,
		})
		page.Height = running
		res.Pages = append(res.Pages, page)

		page = Page{Number: page.Number + 1, Start: b.Pos, Oversized: h > p.Budget}
		running = h
	}

	page.Height = running
	res.Pages = append(res.Pages, page)
	res.TrailingHeight = running
	return res
}

// straddles reports whether a fitting paragraph should still be cut to fill
// the rest of the current page.
func (p *Paginator) straddles(used float64) bool {
	return p.SplitStraddling && p.Budget-used >= 2*p.LineHeight
}

// candidate estimates the cut target for an oversized block that starts
// with used pixels already on its page. The target keeps
// floor((Budget-used)/LineHeight) lines, at least one. When less than two
// lines of room are left the block is about to open the next page, so the
// target is computed for a full page instead; a one-line cut there would
// land on the first row, which Resolve rejects as not interior.
func (p *Paginator) candidate(b Block, used float64) *SplitCandidate {
	remaining := p.Budget - used
	if used > 0 && remaining < 2*p.LineHeight {
		// Not even one full line would stay on this page; cut for the
		// fresh page the block is about to start instead.
		remaining = p.Budget
	}
	lines := int(math.Floor(remaining / p.LineHeight))
	if lines < 1 {
		lines = 1
	}
	return &SplitCandidate{
		Pos:     b.Pos,
		Size:    b.Size,
		Type:    b.Type,
		TargetY: float64(lines)*p.LineHeight - splitEpsilon,
	}
}
