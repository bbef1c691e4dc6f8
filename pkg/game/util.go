package game

import "github.com/samuelbarrett1234/40KLearn/pkg/board"

// isAdjacent reports whether a and b are within Chebyshev distance 1
// of each other (the 8-neighbourhood test used by melee range checks).
func isAdjacent(a, b board.Position) bool {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx <= 1 && dy <= 1
}
