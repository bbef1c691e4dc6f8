package game

import (
	"fmt"

	"github.com/samuelbarrett1234/40KLearn/pkg/board"
	"github.com/samuelbarrett1234/40KLearn/pkg/mechanics"
)

// MoraleCheck resolves a morale test for the unit at Position, driven
// by however many models it lost during the phase just ending. It is
// never offered directly by GameState.Commands() — only ever built by
// generateEndPhaseCommands as part of a Composite.
type MoraleCheck struct {
	Position board.Position
}

// Apply implements Action.
func (a MoraleCheck) Apply(s GameState) ([]GameState, []float64, error) {
	occ, err := s.board.IsOccupied(a.Position)
	if err != nil {
		return nil, nil, err
	}
	if !occ {
		return nil, nil, fmt.Errorf("game: no unit at morale check position %v", a.Position)
	}
	team, err := s.board.TeamAt(a.Position)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.board.UnitAt(a.Position)
	if err != nil {
		return nil, nil, err
	}
	if u.ModelsLostThisPhase <= 0 {
		return []GameState{s}, []float64{1.0}, nil
	}

	outcomes, probs, err := mechanics.ResolveMoraleCheck(u)
	if err != nil {
		return nil, nil, err
	}

	var outStates []GameState
	var outProbs []float64
	for i, outcome := range outcomes {
		var b board.Board
		var err error
		if outcome.Destroyed {
			b, err = s.board.Clear(a.Position)
		} else {
			b, err = s.board.SetUnit(a.Position, outcome.Unit, team)
		}
		if err != nil {
			return nil, nil, err
		}
		next, err := New(s.internalTeam, s.actingTeam, s.phase, b, s.turnLimit, s.turnNumber)
		if err != nil {
			return nil, nil, err
		}
		outStates, outProbs = mergeGameState(outStates, outProbs, next, probs[i])
	}
	return outStates, outProbs, nil
}

// Equals implements Action.
func (a MoraleCheck) Equals(other Action) bool {
	o, ok := other.(MoraleCheck)
	return ok && a.Position == o.Position
}

// String implements Action.
func (a MoraleCheck) String() string {
	return fmt.Sprintf("morale check at (%d,%d)", a.Position.X, a.Position.Y)
}

// Type implements Action.
func (a MoraleCheck) Type() CommandType { return CommandHelper }
