package game

import "github.com/samuelbarrett1234/40KLearn/pkg/board"

// CommandType classifies an Action so callers can distinguish the
// ordinary choices a player makes from the bookkeeping the engine
// inserts automatically.
type CommandType int

const (
	// CommandUnitOrder is a player-chosen order given to one of their
	// own units (move/shoot/charge/fight).
	CommandUnitOrder CommandType = iota
	// CommandEndPhase marks the (possibly composite) action that
	// advances the game to its next phase.
	CommandEndPhase
	// CommandHelper marks an action that only ever appears nested
	// inside another action (overwatch shots inside a ChargeUnit,
	// morale checks inside a Composite) and is never offered directly
	// by GameState.Commands().
	CommandHelper
)

// Action is a command that, applied to a GameState, yields a weighted
// distribution over successor states.
type Action interface {
	// Apply produces the successor-state distribution that results
	// from taking this action in state. The returned probabilities
	// are parallel to the returned states and the states are
	// pairwise distinct.
	Apply(state GameState) (states []GameState, probs []float64, err error)
	// Equals reports whether other performs the same operation.
	Equals(other Action) bool
	String() string
	Type() CommandType
}

// UnitOrderAction is the capability exposed by actions that originate
// from a specific unit and target a specific cell.
type UnitOrderAction interface {
	Action
	SourcePosition() board.Position
	TargetPosition() board.Position
}

// composeAction is the transition-composition algebra of §4.4: apply a
// to every non-finished state in the input distribution (passing
// finished states through unchanged), scale by the input probability,
// and merge into a single output distribution with no duplicate
// states.
func composeAction(a Action, inStates []GameState, inProbs []float64) ([]GameState, []float64, error) {
	var outStates []GameState
	var outProbs []float64

	for i, s := range inStates {
		if s.IsFinished() {
			outStates, outProbs = mergeGameState(outStates, outProbs, s, inProbs[i])
			continue
		}

		results, probs, err := a.Apply(s)
		if err != nil {
			return nil, nil, err
		}
		for j, r := range results {
			outStates, outProbs = mergeGameState(outStates, outProbs, r, probs[j]*inProbs[i])
		}
	}

	return outStates, outProbs, nil
}
