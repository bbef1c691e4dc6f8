package selfplay

import (
	"testing"

	"github.com/samuelbarrett1234/40KLearn/pkg/board"
	"github.com/samuelbarrett1234/40KLearn/pkg/game"
	"github.com/samuelbarrett1234/40KLearn/pkg/unit"
)

// twoActionState builds a root with exactly two deterministic available
// actions: a lone mover at (0,0) with movement 1 in MOVEMENT phase,
// whose only geometrically reachable destination not screened off by
// an adjacent enemy is (1,0); GameState.Commands() always appends an
// EndPhase composite outside FIGHT, giving exactly two actions.
func twoActionState(t *testing.T) game.GameState {
	t.Helper()
	b, err := board.New(4, 1.0)
	if err != nil {
		t.Fatalf("board.New: %v", err)
	}
	mover := unit.Unit{Count: 1, Movement: 1, W: 1, TotalW: 1}
	enemy := unit.Unit{Count: 1, W: 1, TotalW: 1}

	b, err = b.SetUnit(board.Position{X: 0, Y: 0}, mover, 0)
	if err != nil {
		t.Fatalf("SetUnit mover: %v", err)
	}
	b, err = b.SetUnit(board.Position{X: 0, Y: 2}, enemy, 1)
	if err != nil {
		t.Fatalf("SetUnit enemy: %v", err)
	}

	s, err := game.New(0, 0, game.MOVEMENT, b, -1, 0)
	if err != nil {
		t.Fatalf("game.New: %v", err)
	}
	return s
}

func TestNewValidatesArgs(t *testing.T) {
	if _, err := New(1.0, 1.0, 0, 1, 1); err == nil {
		t.Errorf("expected an error for a non-positive numSimulations")
	}
	if _, err := New(1.0, -1.0, 1, 1, 1); err == nil {
		t.Errorf("expected an error for a negative temperature")
	}
	if _, err := New(1.0, 1.0, 1, 0, 1); err == nil {
		t.Errorf("expected an error for zero workers")
	}
	if _, err := New(1.0, 1.0, 1, 1, 1); err != nil {
		t.Errorf("unexpected error for valid args: %v", err)
	}
}

func TestResetRejectsFinishedState(t *testing.T) {
	m, err := New(1.0, 1.0, 1, 1, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, _ := board.New(4, 1.0)
	b, _ = b.SetUnit(board.Position{X: 0, Y: 0}, unit.Unit{Count: 1, W: 1, TotalW: 1}, 0)
	s, err := game.New(0, 0, game.MOVEMENT, b, -1, 0)
	if err != nil {
		t.Fatalf("game.New: %v", err)
	}
	if err := m.Reset(1, s); err == nil {
		t.Errorf("expected an error resetting to an already-finished state")
	}
}

// TestSelectUpdateCommitProtocol covers two games, two actions each,
// numSimulations=1, walking the full Select/Update/Commit cycle once
// per game.
func TestSelectUpdateCommitProtocol(t *testing.T) {
	m, err := New(1.41, 1.0, 1, 2, 42)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := twoActionState(t)
	if err := m.Reset(2, s); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if m.IsWaiting() {
		t.Errorf("expected a freshly reset manager to not be waiting")
	}
	if m.AllFinished() {
		t.Errorf("expected a freshly reset manager to have running games")
	}
	if m.ReadyToCommit() {
		t.Errorf("expected a freshly reset manager to not be ready to commit")
	}

	states, idxs, err := m.Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(states) != 2 || len(idxs) != 2 {
		t.Fatalf("expected both games' roots to be selected as non-terminal leaves, got %d/%d", len(states), len(idxs))
	}
	if !m.IsWaiting() {
		t.Errorf("expected the manager to be waiting for Update after Select")
	}

	if _, _, err := m.Select(); err == nil {
		t.Errorf("expected a second Select call to fail while waiting for Update")
	}

	priors := [][]float64{{0.5, 0.5}, {0.5, 0.5}}
	values := []float64{0.2, -0.2}
	if err := m.Update(values, priors); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if m.IsWaiting() {
		t.Errorf("expected the manager to stop waiting after Update")
	}

	if err := m.Update(values, priors); err == nil {
		t.Errorf("expected a second Update call to fail when not waiting")
	}

	if !m.ReadyToCommit() {
		t.Errorf("expected both trees to have reached their one-sample budget")
	}

	before := m.CurrentStates()
	if len(before) != 2 {
		t.Fatalf("expected 2 running games before Commit, got %d", len(before))
	}

	if err := m.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	sizes, err := m.TreeSizes()
	if err != nil {
		t.Fatalf("TreeSizes: %v", err)
	}
	for i, n := range sizes {
		if n < 1 {
			t.Errorf("game %d: expected a non-empty tree after Commit, got size %d", i, n)
		}
	}
}

func TestUpdateRejectsMismatchedLengths(t *testing.T) {
	m, err := New(1.0, 1.0, 1, 1, 7)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := twoActionState(t)
	if err := m.Reset(1, s); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, _, err := m.Select(); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := m.Update([]float64{0.1, 0.2}, [][]float64{{0.5, 0.5}}); err == nil {
		t.Errorf("expected an error when values/priors lengths disagree with the pending leaf count")
	}
}

func TestCommitRejectsBeforeSimulationBudgetReached(t *testing.T) {
	m, err := New(1.0, 1.0, 5, 1, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := twoActionState(t)
	if err := m.Reset(1, s); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := m.Commit(); err == nil {
		t.Errorf("expected Commit to fail before the simulation budget is reached")
	}
}

func TestSelectRejectsOnAllFinished(t *testing.T) {
	m, err := New(1.0, 1.0, 1, 1, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.running = nil
	if _, _, err := m.Select(); err == nil {
		t.Errorf("expected Select to fail with no running games")
	}
}

func TestFinalPolicyZeroTemperatureIsOneHot(t *testing.T) {
	got := finalPolicy([]int64{3, 7, 1}, 0)
	if got[1] != 1 {
		t.Errorf("expected the argmax action to take probability 1, got %v", got)
	}
	for i, p := range got {
		if i != 1 && p != 0 {
			t.Errorf("expected non-argmax actions to take probability 0, got %v", got)
		}
	}
}

func TestFinalPolicyAllZeroVisitsIsUniform(t *testing.T) {
	got := finalPolicy([]int64{0, 0, 0}, 1.0)
	for _, p := range got {
		if p < 1.0/3.0-1e-9 || p > 1.0/3.0+1e-9 {
			t.Errorf("expected a uniform fallback distribution, got %v", got)
		}
	}
}
