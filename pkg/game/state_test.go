package game

import (
	"math"
	"testing"

	"github.com/samuelbarrett1234/40KLearn/pkg/board"
	"github.com/samuelbarrett1234/40KLearn/pkg/unit"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func sumProbs(probs []float64) float64 {
	var total float64
	for _, p := range probs {
		total += p
	}
	return total
}

func emptyBoard(t *testing.T) board.Board {
	t.Helper()
	b, err := board.New(25, 1.0)
	if err != nil {
		t.Fatalf("board.New: %v", err)
	}
	return b
}

func TestNewRejectsMismatchedActingAndInternalTeam(t *testing.T) {
	b := emptyBoard(t)
	if _, err := New(0, 1, MOVEMENT, b, -1, 0); err == nil {
		t.Errorf("expected an error for acting != internal team outside FIGHT")
	}
}

func TestNewRejectsZeroTurnLimit(t *testing.T) {
	b := emptyBoard(t)
	if _, err := New(0, 0, MOVEMENT, b, 0, 0); err == nil {
		t.Errorf("expected an error for a zero turn limit")
	}
}

// TestNewAcceptsFightPhaseWithNothingToFightWith checks that a FIGHT
// state where neither side has a fightable unit still validates:
// generateEndPhaseCommands only gates on the acting team's own
// fightable units, and with none present it falls back to offering
// the end-phase composite instead of rejecting the state outright.
func TestNewAcceptsFightPhaseWithNothingToFightWith(t *testing.T) {
	b := emptyBoard(t)
	b, err := b.SetUnit(board.Position{X: 0, Y: 0}, unit.Unit{Count: 1, W: 1, TotalW: 1}, 0)
	if err != nil {
		t.Fatalf("SetUnit: %v", err)
	}
	b, err = b.SetUnit(board.Position{X: 24, Y: 24}, unit.Unit{Count: 1, W: 1, TotalW: 1}, 1)
	if err != nil {
		t.Fatalf("SetUnit: %v", err)
	}
	s, err := New(0, 0, FIGHT, b, -1, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cmds, err := s.Commands()
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}
	if len(cmds) != 1 || cmds[0].Type() != CommandEndPhase {
		t.Errorf("expected a single end-phase command, got %v", cmds)
	}
}

func TestIsFinishedOnEmptyTeam(t *testing.T) {
	b := emptyBoard(t)
	b, _ = b.SetUnit(board.Position{X: 0, Y: 0}, unit.Unit{Count: 1, W: 1, TotalW: 1}, 0)
	s, err := New(0, 0, MOVEMENT, b, -1, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !s.IsFinished() {
		t.Errorf("expected a state with an empty team to be finished")
	}
}

func TestIsFinishedOnTurnLimit(t *testing.T) {
	b := emptyBoard(t)
	b, _ = b.SetUnit(board.Position{X: 0, Y: 0}, unit.Unit{Count: 1, W: 1, TotalW: 1}, 0)
	b, _ = b.SetUnit(board.Position{X: 24, Y: 24}, unit.Unit{Count: 1, W: 1, TotalW: 1}, 1)
	s, err := New(0, 0, MOVEMENT, b, 3, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !s.IsFinished() {
		t.Errorf("expected a state at the turn limit to be finished")
	}
}

func TestGameValue(t *testing.T) {
	b := emptyBoard(t)
	b, _ = b.SetUnit(board.Position{X: 0, Y: 0}, unit.Unit{Count: 1, W: 1, TotalW: 1}, 0)
	s, err := New(0, 0, MOVEMENT, b, -1, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v, err := s.GameValue(0)
	if err != nil || v != 1 {
		t.Errorf("GameValue(0) = %v, err=%v, want 1", v, err)
	}
	v, err = s.GameValue(1)
	if err != nil || v != -1 {
		t.Errorf("GameValue(1) = %v, err=%v, want -1", v, err)
	}
}

func TestGameValueRequiresFinished(t *testing.T) {
	b := emptyBoard(t)
	b, _ = b.SetUnit(board.Position{X: 0, Y: 0}, unit.Unit{Count: 1, W: 1, TotalW: 1}, 0)
	b, _ = b.SetUnit(board.Position{X: 24, Y: 24}, unit.Unit{Count: 1, W: 1, TotalW: 1}, 1)
	s, err := New(0, 0, MOVEMENT, b, -1, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.GameValue(0); err == nil {
		t.Errorf("expected an error asking for a game value before the game is finished")
	}
}

func TestEqualIgnoresTurnNumber(t *testing.T) {
	b := emptyBoard(t)
	b, _ = b.SetUnit(board.Position{X: 0, Y: 0}, unit.Unit{Count: 1, W: 1, TotalW: 1}, 0)
	b, _ = b.SetUnit(board.Position{X: 24, Y: 24}, unit.Unit{Count: 1, W: 1, TotalW: 1}, 1)
	s1, _ := New(0, 0, MOVEMENT, b, -1, 0)
	s2, _ := New(0, 0, MOVEMENT, b, -1, 5)
	if !s1.Equal(s2) {
		t.Errorf("expected states differing only in turn number to be Equal")
	}
}

// shootFixture is a shooter at (0,0) vs a target at (2,2), both on a
// 25x25, scale-1.0 board.
func shootFixture(t *testing.T) GameState {
	t.Helper()
	b := emptyBoard(t)
	shooter := unit.Unit{
		Count: 1, W: 1, TotalW: 1, BS: 3,
		RangedRange: 24, RangedS: 4, RangedAP: -1, RangedDmg: 1, RangedShots: 1,
	}
	target := unit.Unit{Count: 1, W: 1, TotalW: 1, T: 4, SV: 3, Inv: 7}
	b, err := b.SetUnit(board.Position{X: 0, Y: 0}, shooter, 0)
	if err != nil {
		t.Fatalf("SetUnit shooter: %v", err)
	}
	b, err = b.SetUnit(board.Position{X: 2, Y: 2}, target, 1)
	if err != nil {
		t.Fatalf("SetUnit target: %v", err)
	}
	s, err := New(0, 0, SHOOTING, b, -1, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// TestShootUnit_S1 exercises a full shooting resolution end to end
// through GameState.Commands()/Action.Apply.
func TestShootUnit_S1(t *testing.T) {
	s := shootFixture(t)
	cmds, err := s.Commands()
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}

	var shoot Action
	for _, c := range cmds {
		if _, ok := c.(ShootUnit); ok {
			shoot = c
		}
	}
	if shoot == nil {
		t.Fatalf("expected a ShootUnit command among %v", cmds)
	}

	states, probs, err := shoot.Apply(s)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 successors, got %d", len(states))
	}
	if !approxEqual(sumProbs(probs), 1.0, 1e-9) {
		t.Errorf("probabilities sum to %v, want 1", sumProbs(probs))
	}
	if !approxEqual(probs[0], 5.0/6.0, 1e-6) || !approxEqual(probs[1], 1.0/6.0, 1e-6) {
		t.Errorf("probs = %v, want [5/6, 1/6]", probs)
	}

	targetAlive, err := states[0].Board().IsOccupied(board.Position{X: 2, Y: 2})
	if err != nil || !targetAlive {
		t.Errorf("expected the target to survive in the first (higher-probability) branch")
	}
	targetDead, err := states[1].Board().IsOccupied(board.Position{X: 2, Y: 2})
	if err != nil || targetDead {
		t.Errorf("expected the target to be cleared in the second branch")
	}
}

// TestCommandsP1ProbabilityConservation checks P1 across every
// available action of the S1 fixture, not just ShootUnit.
func TestCommandsP1ProbabilityConservation(t *testing.T) {
	s := shootFixture(t)
	cmds, err := s.Commands()
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}
	if len(cmds) == 0 {
		t.Fatalf("expected at least one available action")
	}
	for _, c := range cmds {
		states, probs, err := c.Apply(s)
		if err != nil {
			t.Fatalf("Apply(%s): %v", c, err)
		}
		if !approxEqual(sumProbs(probs), 1.0, 1e-4) {
			t.Errorf("%s: probabilities sum to %v, want 1", c, sumProbs(probs))
		}
		for i := range states {
			for j := i + 1; j < len(states); j++ {
				if states[i].Equal(states[j]) {
					t.Errorf("%s: successor states %d and %d are not distinct", c, i, j)
				}
			}
		}
	}
}

// TestMoveUnit exercises the MOVEMENT generator and transition.
func TestMoveUnit(t *testing.T) {
	b := emptyBoard(t)
	mover := unit.Unit{Count: 1, Movement: 2, W: 1, TotalW: 1}
	enemy := unit.Unit{Count: 1, W: 1, TotalW: 1}
	b, _ = b.SetUnit(board.Position{X: 5, Y: 5}, mover, 0)
	b, _ = b.SetUnit(board.Position{X: 20, Y: 20}, enemy, 1)
	s, err := New(0, 0, MOVEMENT, b, -1, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	move := MoveUnit{Source: board.Position{X: 5, Y: 5}, Target: board.Position{X: 6, Y: 5}}
	states, probs, err := move.Apply(s)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(states) != 1 || probs[0] != 1.0 {
		t.Fatalf("expected a single deterministic successor, got %d (%v)", len(states), probs)
	}

	moved, err := states[0].Board().UnitAt(board.Position{X: 6, Y: 5})
	if err != nil {
		t.Fatalf("UnitAt: %v", err)
	}
	if !moved.MovedThisTurn {
		t.Errorf("expected MovedThisTurn to be set after a move")
	}
	if occ, _ := states[0].Board().IsOccupied(board.Position{X: 5, Y: 5}); occ {
		t.Errorf("expected the source square to be cleared")
	}
}

func TestMoveUnitRejectsSecondMoveSameTurn(t *testing.T) {
	b := emptyBoard(t)
	mover := unit.Unit{Count: 1, Movement: 2, W: 1, TotalW: 1, MovedThisTurn: true}
	enemy := unit.Unit{Count: 1, W: 1, TotalW: 1}
	b, _ = b.SetUnit(board.Position{X: 5, Y: 5}, mover, 0)
	b, _ = b.SetUnit(board.Position{X: 20, Y: 20}, enemy, 1)
	s, err := New(0, 0, MOVEMENT, b, -1, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cmds, err := s.Commands()
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}
	for _, c := range cmds {
		if _, ok := c.(MoveUnit); ok {
			t.Errorf("expected no move commands for a unit that already moved this turn")
		}
	}
}

// TestEndPhaseMorale_S3 covers a no-loss morale short-circuit
// (r_min >= 7) folded into the EndPhase composite.
func TestEndPhaseMorale_S3(t *testing.T) {
	b := emptyBoard(t)
	squad := unit.Unit{LD: 8, Count: 3, TotalW: 3, W: 1, ModelsLostThisPhase: 2}
	enemy := unit.Unit{Count: 1, W: 1, TotalW: 1}
	b, _ = b.SetUnit(board.Position{X: 0, Y: 0}, squad, 0)
	b, _ = b.SetUnit(board.Position{X: 20, Y: 20}, enemy, 1)
	s, err := New(0, 0, MOVEMENT, b, -1, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cmds, err := s.Commands()
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}
	var endPhase Action
	for _, c := range cmds {
		if c.Type() == CommandEndPhase {
			endPhase = c
		}
	}
	if endPhase == nil {
		t.Fatalf("expected an EndPhase command among %v", cmds)
	}

	states, probs, err := endPhase.Apply(s)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(states) != 1 || !approxEqual(probs[0], 1.0, 1e-9) {
		t.Fatalf("expected a single successor with probability 1, got %d (%v)", len(states), probs)
	}

	got, err := states[0].Board().UnitAt(board.Position{X: 0, Y: 0})
	if err != nil {
		t.Fatalf("UnitAt: %v", err)
	}
	if got.ModelsLostThisPhase != 0 {
		t.Errorf("expected ModelsLostThisPhase to reset to 0, got %d", got.ModelsLostThisPhase)
	}
	if got.Count != 3 {
		t.Errorf("expected no models lost to morale when r_min >= 7, got count=%d", got.Count)
	}
}

// TestEndPhaseCyclesPhasesAndGatesOnFight covers the CHARGE -> FIGHT
// step of the phase cycle and the choice of acting team on entering
// FIGHT when neither side has a fightable unit.
func TestEndPhaseCyclesPhasesAndGatesOnFight(t *testing.T) {
	b := emptyBoard(t)
	a := unit.Unit{Count: 1, W: 1, TotalW: 1, MeleeS: 4, MeleeDmg: 1, A: 1, FoughtThisTurn: true}
	e := unit.Unit{Count: 1, W: 1, TotalW: 1}
	b, _ = b.SetUnit(board.Position{X: 0, Y: 0}, a, 0)
	b, _ = b.SetUnit(board.Position{X: 20, Y: 20}, e, 1)
	s, err := New(0, 0, CHARGE, b, -1, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cmds, err := s.Commands()
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}
	var endPhase Action
	for _, c := range cmds {
		if c.Type() == CommandEndPhase {
			endPhase = c
		}
	}
	if endPhase == nil {
		t.Fatalf("expected EndPhase to be available leaving CHARGE")
	}

	states, _, err := endPhase.Apply(s)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	next := states[0]
	phase, err := next.CurrentPhase()
	if err != nil {
		t.Fatalf("CurrentPhase: %v", err)
	}
	if phase != FIGHT {
		t.Errorf("expected CHARGE to cycle into FIGHT, got %s", phase)
	}
	// Neither team has a fightable unit (the two units are far apart), so
	// the acting team must default to the internal team rather than
	// flipping to the opponent.
	acting, err := next.ActingTeam()
	if err != nil {
		t.Fatalf("ActingTeam: %v", err)
	}
	if acting != 0 {
		t.Errorf("expected acting team to default to the internal team 0 when neither side can fight, got %d", acting)
	}
}

func TestEndPhaseFightGate(t *testing.T) {
	b := emptyBoard(t)
	// Adjacent melee units on both teams: both sides still have
	// something to fight with, so EndPhase must not be offered.
	a := unit.Unit{Count: 1, W: 1, TotalW: 1, MeleeS: 4, MeleeDmg: 1, A: 1}
	e := unit.Unit{Count: 1, W: 1, TotalW: 1, MeleeS: 4, MeleeDmg: 1, A: 1}
	b, _ = b.SetUnit(board.Position{X: 0, Y: 0}, a, 0)
	b, _ = b.SetUnit(board.Position{X: 0, Y: 1}, e, 1)
	s, err := New(0, 0, FIGHT, b, -1, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cmds, err := s.Commands()
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}
	for _, c := range cmds {
		if c.Type() == CommandEndPhase {
			t.Errorf("expected EndPhase to be gated off while a fightable unit remains")
		}
	}
}

// TestChargeCommandsRespectRangeAndAdjacency covers P9.
func TestChargeCommandsRespectRangeAndAdjacency(t *testing.T) {
	b := emptyBoard(t)
	charger := unit.Unit{Count: 1, W: 1, TotalW: 1, MeleeS: 4, MeleeDmg: 1, A: 1}
	enemy := unit.Unit{Count: 1, W: 1, TotalW: 1}
	b, _ = b.SetUnit(board.Position{X: 0, Y: 0}, charger, 0)
	b, _ = b.SetUnit(board.Position{X: 1, Y: 13}, enemy, 1)
	s, err := New(0, 0, CHARGE, b, -1, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cmds, err := s.Commands()
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}
	for _, c := range cmds {
		charge, ok := c.(ChargeUnit)
		if !ok {
			continue
		}
		if s.board.Distance(charge.Source, charge.Target) > 12.0 {
			t.Errorf("charge target %v exceeds the 12-unit charge range", charge.Target)
		}
		if !s.board.HasAdjacentEnemy(charge.Target, 0) {
			t.Errorf("charge target %v has no adjacent enemy", charge.Target)
		}
	}
}
