package pagination

// Page geometry shared by the engine, the layout surface and the exporters.
// All values are CSS pixels at 96dpi. Break positions are only consistent
// across renderers when every consumer uses exactly these numbers.
const (
	PxPerInch = 96

	// PageWidth is US Letter width (8.5in)
	PageWidth = 816
	// PageHeight is US Letter height (11in)
	PageHeight = 1056
	// Margin is the 1in band on every side of the page
	Margin = 96

	// ContentHeight is the true vertical content area of one page.
	ContentHeight = PageHeight - 2*Margin // 864
	// ContentWidth is the width of the text column.
	ContentWidth = PageWidth - 2*Margin // 624

	// PrintableHeight is the budget the scanner fills. It sits 4px under
	// ContentHeight so sub-pixel rounding never pushes a line onto the next
	// sheet when printed.
	PrintableHeight = 860

	// LineHeight is the body text line grid.
	LineHeight = 24

	// PageGap is the screen-only gap drawn between sheets.
	PageGap = 48
)

// splitEpsilon keeps the split target inside the last allowed line.
const splitEpsilon = 2

// rowTolerance is how far apart two tops may be and still count as the same
// visual row when snapping a split position.
const rowTolerance = 5
