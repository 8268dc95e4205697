package pagination

import "time"

// Block is a top-level document node as seen by the scanner.
type Block struct {
	Pos  int
	Size int
	Type string
}

// TypeParagraph is the only block type the resolver will split.
const TypeParagraph = "paragraph"

// Rect is an on-screen rectangle in viewport pixels.
type Rect struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

// Coords is the on-screen position of a document position.
type Coords struct {
	Top  float64
	Left float64
}

// Measurer reports the current render of the document.
// Every method may report false when the render has no binding for the
// requested position; callers treat that as a degraded input, not an error.
type Measurer interface {
	HeightOf(pos int) (float64, bool)
	BlockRect(pos int) (Rect, bool)
	PosAtCoords(x, y float64) (int, bool)
	CoordsAtPos(pos int) (Coords, bool)
}

// Meta tags a transaction dispatched by or observed by the engine.
type Meta struct {
	// SkipHistory keeps the transaction out of the undo history.
	SkipHistory bool
	// ForcePagination re-arms the scheduler even for internal commits.
	ForcePagination bool
	// OverlayCommit marks a transaction that only replaced the overlay set.
	OverlayCommit bool
}

// Change describes a transaction applied by the editing surface.
type Change struct {
	DocChanged bool
	Meta       Meta
}

// View is the editing surface the engine paginates.
type View interface {
	Measurer
	// Blocks returns the current top-level blocks in document order.
	Blocks() []Block
	// Size is the document content size.
	Size() int
	// CommitOverlay replaces the transient overlay state. The host must tag
	// the resulting transaction with SkipHistory and OverlayCommit.
	CommitOverlay(set *OverlaySet) error
	// Split splits the textblock containing pos into two blocks.
	Split(pos int, meta Meta) error
}

// Timer is a pending host callback.
type Timer interface {
	Stop() bool
}

// Host is the cooperative event loop the engine runs on. Callbacks are
// always executed on the same goroutine that calls into the engine.
type Host interface {
	AfterFunc(d time.Duration, f func()) Timer
	RequestFrame(f func())
}
