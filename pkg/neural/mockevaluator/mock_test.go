package mockevaluator

import (
	"math"
	"testing"

	"github.com/samuelbarrett1234/40KLearn/pkg/board"
	"github.com/samuelbarrett1234/40KLearn/pkg/game"
	"github.com/samuelbarrett1234/40KLearn/pkg/unit"
)

func fixture(t *testing.T) game.GameState {
	t.Helper()
	b, err := board.New(4, 1.0)
	if err != nil {
		t.Fatalf("board.New: %v", err)
	}
	b, err = b.SetUnit(board.Position{X: 0, Y: 0}, unit.Unit{Count: 2, W: 1, TotalW: 1}, 0)
	if err != nil {
		t.Fatalf("SetUnit: %v", err)
	}
	b, err = b.SetUnit(board.Position{X: 3, Y: 3}, unit.Unit{Count: 1, W: 1, TotalW: 1}, 1)
	if err != nil {
		t.Fatalf("SetUnit: %v", err)
	}
	s, err := game.New(0, 0, game.MOVEMENT, b, -1, 0)
	if err != nil {
		t.Fatalf("game.New: %v", err)
	}
	return s
}

func TestEvaluateBatchUniformPrior(t *testing.T) {
	s := fixture(t)
	cmds, err := s.Commands()
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}

	values, priors, err := New().EvaluateBatch([]game.GameState{s})
	if err != nil {
		t.Fatalf("EvaluateBatch: %v", err)
	}
	if len(values) != 1 || len(priors) != 1 {
		t.Fatalf("expected one value and one prior row, got %d/%d", len(values), len(priors))
	}
	if len(priors[0]) != len(cmds) {
		t.Fatalf("expected a prior entry per command, got %d for %d commands", len(priors[0]), len(cmds))
	}

	var total float64
	for _, p := range priors[0] {
		if math.Abs(p-priors[0][0]) > 1e-9 {
			t.Errorf("expected a uniform prior, got %v", priors[0])
		}
		total += p
	}
	if math.Abs(total-1.0) > 1e-9 {
		t.Errorf("expected priors to sum to 1, got %v", total)
	}
}

func TestEvaluateBatchMaterialValueFavorsLargerForce(t *testing.T) {
	s := fixture(t)
	values, _, err := New().EvaluateBatch([]game.GameState{s})
	if err != nil {
		t.Fatalf("EvaluateBatch: %v", err)
	}
	// Acting team 0 has 2 models against team 1's 1: (2-1)/3.
	want := 1.0 / 3.0
	if math.Abs(values[0]-want) > 1e-9 {
		t.Errorf("values[0] = %v, want %v", values[0], want)
	}
}

func TestEvaluateBatchEmpty(t *testing.T) {
	values, priors, err := New().EvaluateBatch(nil)
	if err != nil {
		t.Fatalf("EvaluateBatch: %v", err)
	}
	if len(values) != 0 || len(priors) != 0 {
		t.Errorf("expected empty results for an empty batch, got %d/%d", len(values), len(priors))
	}
}
