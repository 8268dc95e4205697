package pagination

import (
	"errors"
	"fmt"
)

// Split resolution aborts. None of them are fatal: pagination stays
// approximate until the next pass.
var (
	ErrNoRect      = errors.New("block has no on-screen rectangle")
	ErrUnmapped    = errors.New("split target does not map to a position")
	ErrNotInterior = errors.New("split position is not inside the block")
)

// Resolve turns a split candidate into a structural split of the block.
// It returns the position the block was split at.
func Resolve(v View, c *SplitCandidate) (int, error) {
	rect, ok := v.BlockRect(c.Pos)
	if !ok {
		return 0, ErrNoRect
	}

	y := rect.Top + c.TargetY
	x := rect.Left + rect.Width/2
	pos, ok := v.PosAtCoords(x, y)
	if !ok {
		return 0, ErrUnmapped
	}
	if !interior(c, pos) {
		return 0, fmt.Errorf("%w: mapped %d, block %d+%d", ErrNotInterior, pos, c.Pos, c.Size)
	}

	pos = snapToRowStart(v, c, pos)
	if pos <= c.Pos+1 || !interior(c, pos) {
		return 0, fmt.Errorf("%w: snapped to %d, block %d+%d", ErrNotInterior, pos, c.Pos, c.Size)
	}

	if err := v.Split(pos, Meta{SkipHistory: true, ForcePagination: true}); err != nil {
		return 0, fmt.Errorf("failed to split block at %d: %w", pos, err)
	}
	return pos, nil
}

// interior reports whether pos lies strictly inside the block's content.
func interior(c *SplitCandidate, pos int) bool {
	return pos > c.Pos && pos < c.Pos+c.Size-1
}

// snapToRowStart walks back from pos to the first position of its visual
// row so the block is never cut in the middle of a line.
func snapToRowStart(m Measurer, c *SplitCandidate, pos int) int {
	here, ok := m.CoordsAtPos(pos)
	if !ok {
		return pos
	}
	for steps := 0; pos > c.Pos+1 && steps < c.Size; steps++ {
		prev, ok := m.CoordsAtPos(pos - 1)
		if !ok || prev.Top < here.Top-rowTolerance {
			break
		}
		pos--
	}
	return pos
}
