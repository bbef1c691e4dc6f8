package board

import (
	"math"
	"testing"

	"github.com/samuelbarrett1234/40KLearn/pkg/unit"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func TestNewValidatesArgs(t *testing.T) {
	if _, err := New(0, 1.0); err == nil {
		t.Errorf("expected an error for a non-positive size")
	}
	if _, err := New(5, 0); err == nil {
		t.Errorf("expected an error for a non-positive scale")
	}
	if _, err := New(5, 1.0); err != nil {
		t.Errorf("unexpected error for valid args: %v", err)
	}
}

func TestIsOccupiedOutOfBounds(t *testing.T) {
	b, _ := New(4, 1.0)
	if _, err := b.IsOccupied(Position{X: -1, Y: 0}); err == nil {
		t.Errorf("expected an error for an out-of-bounds position")
	}
	if _, err := b.IsOccupied(Position{X: 4, Y: 0}); err == nil {
		t.Errorf("expected an error for an out-of-bounds position")
	}
}

func TestSetUnitAndUnitAt(t *testing.T) {
	b, _ := New(4, 1.0)
	u := unit.Unit{Name: "squad"}

	b2, err := b.SetUnit(Position{X: 1, Y: 1}, u, 0)
	if err != nil {
		t.Fatalf("SetUnit: %v", err)
	}

	// Copy-on-write: the receiver is untouched.
	if occ, _ := b.IsOccupied(Position{X: 1, Y: 1}); occ {
		t.Errorf("expected the original board to remain unoccupied")
	}

	occ, err := b2.IsOccupied(Position{X: 1, Y: 1})
	if err != nil || !occ {
		t.Fatalf("expected (1,1) to be occupied, err=%v", err)
	}
	got, err := b2.UnitAt(Position{X: 1, Y: 1})
	if err != nil {
		t.Fatalf("UnitAt: %v", err)
	}
	if !got.Equal(u) {
		t.Errorf("got %+v, want %+v", got, u)
	}
	team, err := b2.TeamAt(Position{X: 1, Y: 1})
	if err != nil || team != 0 {
		t.Errorf("team = %v, err=%v, want 0", team, err)
	}
}

func TestSetUnitRejectsInvalidTeam(t *testing.T) {
	b, _ := New(4, 1.0)
	if _, err := b.SetUnit(Position{X: 0, Y: 0}, unit.Unit{}, 2); err == nil {
		t.Errorf("expected an error for an invalid team")
	}
}

func TestUnitAtRequiresOccupied(t *testing.T) {
	b, _ := New(4, 1.0)
	if _, err := b.UnitAt(Position{X: 0, Y: 0}); err == nil {
		t.Errorf("expected an error for an unoccupied position")
	}
}

func TestClear(t *testing.T) {
	b, _ := New(4, 1.0)
	b, _ = b.SetUnit(Position{X: 0, Y: 0}, unit.Unit{Name: "a"}, 0)
	b, _ = b.SetUnit(Position{X: 3, Y: 3}, unit.Unit{Name: "b"}, 1)

	cleared, err := b.Clear(Position{X: 0, Y: 0})
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if occ, _ := cleared.IsOccupied(Position{X: 0, Y: 0}); occ {
		t.Errorf("expected (0,0) to be cleared")
	}
	// Swap-and-pop must not disturb the surviving occupant.
	if occ, _ := cleared.IsOccupied(Position{X: 3, Y: 3}); !occ {
		t.Errorf("expected (3,3) to remain occupied after clearing a different cell")
	}

	if _, err := cleared.Clear(Position{X: 0, Y: 0}); err == nil {
		t.Errorf("expected an error clearing an already-empty cell")
	}
}

func TestAllUnitPositionsAndStats(t *testing.T) {
	b, _ := New(4, 1.0)
	b, _ = b.SetUnit(Position{X: 0, Y: 0}, unit.Unit{Name: "a"}, 0)
	b, _ = b.SetUnit(Position{X: 1, Y: 1}, unit.Unit{Name: "b"}, 0)
	b, _ = b.SetUnit(Position{X: 3, Y: 3}, unit.Unit{Name: "c"}, 1)

	positions, err := b.AllUnitPositions(0)
	if err != nil {
		t.Fatalf("AllUnitPositions: %v", err)
	}
	stats, err := b.AllUnitStats(0)
	if err != nil {
		t.Fatalf("AllUnitStats: %v", err)
	}
	if len(positions) != 2 || len(stats) != 2 {
		t.Fatalf("expected 2 team-0 units, got %d positions / %d stats", len(positions), len(stats))
	}
	for i, p := range positions {
		occupant, err := b.UnitAt(p)
		if err != nil || !occupant.Equal(stats[i]) {
			t.Errorf("stats[%d] does not match the unit actually at positions[%d]", i, i)
		}
	}
}

func TestHasAdjacentEnemy(t *testing.T) {
	b, _ := New(4, 1.0)
	b, _ = b.SetUnit(Position{X: 1, Y: 1}, unit.Unit{}, 0)
	b, _ = b.SetUnit(Position{X: 2, Y: 2}, unit.Unit{}, 1)

	if !b.HasAdjacentEnemy(Position{X: 1, Y: 1}, 0) {
		t.Errorf("expected an adjacent enemy via Chebyshev distance 1")
	}
	if b.HasAdjacentEnemy(Position{X: 1, Y: 1}, 1) {
		t.Errorf("a unit of team 1 standing at (2,2) should not count as its own adjacent enemy")
	}

	b2, _ := b.SetUnit(Position{X: 0, Y: 3}, unit.Unit{}, 1)
	if b2.HasAdjacentEnemy(Position{X: 0, Y: 0}, 0) {
		t.Errorf("(0,3) is not within Chebyshev distance 1 of (0,0)")
	}
}

func TestSquaresInRangeIncludesCentreAndExcludesOutOfBounds(t *testing.T) {
	b, _ := New(4, 1.0)
	squares := b.SquaresInRange(Position{X: 0, Y: 0}, 1.0)

	foundCentre := false
	for _, p := range squares {
		if p == (Position{X: 0, Y: 0}) {
			foundCentre = true
		}
		if p.X < 0 || p.Y < 0 || p.X >= 4 || p.Y >= 4 {
			t.Errorf("SquaresInRange returned an out-of-bounds position %v", p)
		}
	}
	if !foundCentre {
		t.Errorf("expected SquaresInRange to include the centre")
	}
	if len(squares) != 3 {
		t.Errorf("expected 3 in-range squares at a board corner, got %d: %v", len(squares), squares)
	}
}

func TestDistance(t *testing.T) {
	b, _ := New(10, 2.0)
	got := b.Distance(Position{X: 0, Y: 0}, Position{X: 3, Y: 4})
	want := 2.0 * 5.0 // scale * 3-4-5 triangle
	if !approxEqual(got, want, 1e-9) {
		t.Errorf("Distance = %v, want %v", got, want)
	}
}

func TestUnitCounts(t *testing.T) {
	b, _ := New(4, 1.0)
	b, _ = b.SetUnit(Position{X: 0, Y: 0}, unit.Unit{}, 0)
	b, _ = b.SetUnit(Position{X: 1, Y: 0}, unit.Unit{}, 0)
	b, _ = b.SetUnit(Position{X: 2, Y: 0}, unit.Unit{}, 1)

	c0, c1 := b.UnitCounts()
	if c0 != 2 || c1 != 1 {
		t.Errorf("UnitCounts = (%d, %d), want (2, 1)", c0, c1)
	}
}

func TestEqualIgnoresInsertionOrder(t *testing.T) {
	a, _ := New(4, 1.0)
	a, _ = a.SetUnit(Position{X: 0, Y: 0}, unit.Unit{Name: "a"}, 0)
	a, _ = a.SetUnit(Position{X: 1, Y: 1}, unit.Unit{Name: "b"}, 1)

	b, _ := New(4, 1.0)
	b, _ = b.SetUnit(Position{X: 1, Y: 1}, unit.Unit{Name: "b"}, 1)
	b, _ = b.SetUnit(Position{X: 0, Y: 0}, unit.Unit{Name: "a"}, 0)

	if !a.Equal(b) {
		t.Errorf("expected boards with the same occupants to be equal regardless of insertion order")
	}

	c, _ := b.Clear(Position{X: 0, Y: 0})
	if a.Equal(c) {
		t.Errorf("expected boards with different occupants to be unequal")
	}
}
