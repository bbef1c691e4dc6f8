// Package board implements the spatial model of the engine: a fixed-size
// square grid mapping occupied cells to a team and a unit record, plus
// the range/adjacency queries actions and mechanics need.
package board

import (
	"fmt"
	"math"

	"github.com/samuelbarrett1234/40KLearn/internal/invariant"
	"github.com/samuelbarrett1234/40KLearn/pkg/unit"
)

// Position is an integer grid coordinate.
type Position struct {
	X, Y int
}

// Board is a value type: every mutating method returns a new Board,
// leaving the receiver untouched, so a Board can be shared freely
// between game states without defensive copying by the caller.
type Board struct {
	size  int
	scale float64

	// These three slices are kept the same length, index-aligned,
	// mirroring BoardState's parallel m_Units/m_Positions/m_Teams
	// arrays in the original engine.
	positions []Position
	units     []unit.Unit
	teams     []int
}

// New creates an empty board of the given side length and per-cell
// scale (real-world length per cell).
func New(size int, scale float64) (Board, error) {
	if size <= 0 {
		return Board{}, fmt.Errorf("board: size must be strictly positive, got %d", size)
	}
	if scale <= 0 {
		return Board{}, fmt.Errorf("board: scale must be strictly positive, got %g", scale)
	}
	return Board{size: size, scale: scale}, nil
}

// Size returns the side length of the board.
func (b Board) Size() int { return b.size }

// Scale returns the real-world length represented by one cell.
func (b Board) Scale() float64 { return b.scale }

func (b Board) inBounds(pos Position) bool {
	return pos.X >= 0 && pos.Y >= 0 && pos.X < b.size && pos.Y < b.size
}

func (b Board) indexOf(pos Position) int {
	for i, p := range b.positions {
		if p == pos {
			return i
		}
	}
	return -1
}

// IsOccupied reports whether pos has a unit on it.
func (b Board) IsOccupied(pos Position) (bool, error) {
	if !b.inBounds(pos) {
		return false, fmt.Errorf("board: position %v out of bounds for size %d", pos, b.size)
	}
	return b.indexOf(pos) >= 0, nil
}

// SetUnit returns a copy of b with u placed on pos for team, inserting
// or overwriting whatever was there.
func (b Board) SetUnit(pos Position, u unit.Unit, team int) (Board, error) {
	if !b.inBounds(pos) {
		return Board{}, fmt.Errorf("board: position %v out of bounds for size %d", pos, b.size)
	}
	if team != 0 && team != 1 {
		return Board{}, fmt.Errorf("board: team must be 0 or 1, got %d", team)
	}

	nb := b.clone()
	if i := nb.indexOf(pos); i >= 0 {
		nb.units[i] = u
		nb.teams[i] = team
	} else {
		nb.positions = append(nb.positions, pos)
		nb.units = append(nb.units, u)
		nb.teams = append(nb.teams, team)
	}
	invariant.Check(len(nb.positions) == len(nb.units) && len(nb.units) == len(nb.teams),
		"board: occupant arrays must agree in length")
	return nb, nil
}

// UnitAt returns the unit occupying pos.
func (b Board) UnitAt(pos Position) (unit.Unit, error) {
	occ, err := b.IsOccupied(pos)
	if err != nil {
		return unit.Unit{}, err
	}
	if !occ {
		return unit.Unit{}, fmt.Errorf("board: %v is not occupied", pos)
	}
	return b.units[b.indexOf(pos)], nil
}

// TeamAt returns the team occupying pos.
func (b Board) TeamAt(pos Position) (int, error) {
	occ, err := b.IsOccupied(pos)
	if err != nil {
		return 0, err
	}
	if !occ {
		return 0, fmt.Errorf("board: %v is not occupied", pos)
	}
	return b.teams[b.indexOf(pos)], nil
}

// Clear returns a copy of b with pos emptied.
func (b Board) Clear(pos Position) (Board, error) {
	occ, err := b.IsOccupied(pos)
	if err != nil {
		return Board{}, err
	}
	if !occ {
		return Board{}, fmt.Errorf("board: %v is not occupied", pos)
	}

	nb := b.clone()
	i := nb.indexOf(pos)
	last := len(nb.positions) - 1

	// Swap-and-pop avoids an O(n) shift of the remaining occupants.
	nb.positions[i], nb.positions[last] = nb.positions[last], nb.positions[i]
	nb.units[i], nb.units[last] = nb.units[last], nb.units[i]
	nb.teams[i], nb.teams[last] = nb.teams[last], nb.teams[i]

	nb.positions = nb.positions[:last]
	nb.units = nb.units[:last]
	nb.teams = nb.teams[:last]

	return nb, nil
}

// AllUnitPositions returns the positions of every unit belonging to team.
func (b Board) AllUnitPositions(team int) ([]Position, error) {
	if team != 0 && team != 1 {
		return nil, fmt.Errorf("board: team must be 0 or 1, got %d", team)
	}
	out := make([]Position, 0, len(b.positions))
	for i, t := range b.teams {
		if t == team {
			out = append(out, b.positions[i])
		}
	}
	return out, nil
}

// AllUnitStats returns the unit records of every unit belonging to team,
// in the same order as AllUnitPositions.
func (b Board) AllUnitStats(team int) ([]unit.Unit, error) {
	if team != 0 && team != 1 {
		return nil, fmt.Errorf("board: team must be 0 or 1, got %d", team)
	}
	out := make([]unit.Unit, 0, len(b.units))
	for i, t := range b.teams {
		if t == team {
			out = append(out, b.units[i])
		}
	}
	return out, nil
}

// HasAdjacentEnemy reports whether any occupant in the 8-neighbourhood
// of pos (Chebyshev distance <= 1, excluding pos itself) belongs to the
// other team.
func (b Board) HasAdjacentEnemy(pos Position, team int) bool {
	for i, p := range b.positions {
		if b.teams[i] == team || p == pos {
			continue
		}
		if abs(p.X-pos.X) <= 1 && abs(p.Y-pos.Y) <= 1 {
			return true
		}
	}
	return false
}

// SquaresInRange returns every in-bounds cell (including centre) whose
// Euclidean cell-distance from centre is at most radius (a real-world
// length, like Scale()).
func (b Board) SquaresInRange(centre Position, radius float64) []Position {
	intRad := int(math.Ceil(radius / b.scale))
	intRadSq := int(math.Floor(radius * radius / (b.scale * b.scale)))

	left := maxInt(0, centre.X-intRad)
	right := minInt(b.size-1, centre.X+intRad)
	top := maxInt(0, centre.Y-intRad)
	bottom := minInt(b.size-1, centre.Y+intRad)

	result := make([]Position, 0, 4*intRadSq+1)
	for i := left; i <= right; i++ {
		for j := top; j <= bottom; j++ {
			dx, dy := centre.X-i, centre.Y-j
			if dx*dx+dy*dy <= intRadSq {
				result = append(result, Position{i, j})
			}
		}
	}
	return result
}

// Distance returns the real-world distance between a and b, computed in
// double precision throughout (see DESIGN.md's "distance" open question).
func (b Board) Distance(a, c Position) float64 {
	dx := float64(a.X - c.X)
	dy := float64(a.Y - c.Y)
	return b.scale * math.Sqrt(dx*dx+dy*dy)
}

// UnitCounts returns the number of units belonging to team 0 and team 1.
func (b Board) UnitCounts() (team0, team1 int) {
	for _, t := range b.teams {
		switch t {
		case 0:
			team0++
		case 1:
			team1++
		}
	}
	return
}

// Equal reports whether two boards have identical occupancy, independent
// of internal slice ordering (insertion/removal order is not semantically
// meaningful).
func (b Board) Equal(o Board) bool {
	if b.size != o.size || b.scale != o.scale || len(b.positions) != len(o.positions) {
		return false
	}
	for i, p := range b.positions {
		j := o.indexOf(p)
		if j < 0 || b.teams[i] != o.teams[j] || !b.units[i].Equal(o.units[j]) {
			return false
		}
	}
	return true
}

// String renders a diagnostic summary of the board's occupants.
func (b Board) String() string {
	s := fmt.Sprintf("Board(size=%d, scale=%g, units=[", b.size, b.scale)
	for i, p := range b.positions {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%q@(%d,%d)", b.units[i].Name, p.X, p.Y)
	}
	return s + "])"
}

func (b Board) clone() Board {
	nb := Board{size: b.size, scale: b.scale}
	nb.positions = append([]Position(nil), b.positions...)
	nb.units = append([]unit.Unit(nil), b.units...)
	nb.teams = append([]int(nil), b.teams...)
	return nb
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
