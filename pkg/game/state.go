// Package game implements the immutable game-state model: GameState
// itself, the Action protocol, and the eight concrete actions
// (MoveUnit, ShootUnit, ChargeUnit, FightUnit, OverwatchShot,
// MoraleCheck, EndPhase, Composite). These live in one package because
// GameState.Commands() enumerates the concrete actions and the actions
// construct GameStates in turn — a mutual dependency the original
// engine resolves by compiling GameState.cpp and every *Command.cpp
// into a single library.
package game

import (
	"fmt"

	"github.com/samuelbarrett1234/40KLearn/internal/invariant"
	"github.com/samuelbarrett1234/40KLearn/pkg/board"
	"github.com/samuelbarrett1234/40KLearn/pkg/mechanics"
)

// GameState is an immutable snapshot: board plus acting/internal team,
// phase and turn counters. Construct with New; all mutation happens by
// applying Actions, which return new GameState values.
type GameState struct {
	internalTeam int
	actingTeam   int
	phase        Phase
	board        board.Board
	turnLimit    int // negative: unbounded; otherwise strictly positive
	turnNumber   int
}

// New constructs a GameState, validating the acting/internal-team
// invariant, the turn-limit/turn-number ranges, and that the state is
// either terminal or has at least one available action.
func New(internalTeam, actingTeam int, phase Phase, b board.Board, turnLimit, turnNumber int) (GameState, error) {
	if internalTeam != 0 && internalTeam != 1 {
		return GameState{}, fmt.Errorf("game: internal team must be 0 or 1, got %d", internalTeam)
	}
	if actingTeam != 0 && actingTeam != 1 {
		return GameState{}, fmt.Errorf("game: acting team must be 0 or 1, got %d", actingTeam)
	}
	if actingTeam != internalTeam && phase != FIGHT {
		return GameState{}, fmt.Errorf("game: acting team and internal team must match outside the fight phase")
	}
	if turnLimit == 0 {
		return GameState{}, fmt.Errorf("game: turn limit must be nonzero")
	}
	if turnNumber < 0 {
		return GameState{}, fmt.Errorf("game: turn number must be nonnegative")
	}

	s := GameState{
		internalTeam: internalTeam,
		actingTeam:   actingTeam,
		phase:        phase,
		board:        b,
		turnLimit:    turnLimit,
		turnNumber:   turnNumber,
	}

	if !s.IsFinished() {
		cmds, err := s.Commands()
		if err != nil {
			return GameState{}, err
		}
		if len(cmds) == 0 {
			return GameState{}, fmt.Errorf("game: invalid game state - not finished but no available actions")
		}
	}

	return s, nil
}

// ActingTeam is the team that chooses the next action.
func (s GameState) ActingTeam() (int, error) {
	if s.IsFinished() {
		return 0, fmt.Errorf("game: can't produce acting team for a finished game")
	}
	invariant.Check(s.actingTeam == s.internalTeam || s.phase == FIGHT,
		"acting team and internal team should agree outside the fight phase")
	return s.actingTeam, nil
}

// InternalTeam is the team whose structural turn it is.
func (s GameState) InternalTeam() (int, error) {
	if s.IsFinished() {
		return 0, fmt.Errorf("game: can't produce internal team for a finished game")
	}
	return s.internalTeam, nil
}

// CurrentPhase is the phase actions are currently being enumerated in.
func (s GameState) CurrentPhase() (Phase, error) {
	if s.IsFinished() {
		return 0, fmt.Errorf("game: can't produce phase for a finished game")
	}
	return s.phase, nil
}

// Board returns the board state.
func (s GameState) Board() board.Board { return s.board }

// HasTurnLimit reports whether this game ends after a fixed number of
// turns.
func (s GameState) HasTurnLimit() bool { return s.turnLimit > 0 }

// TurnLimit returns the configured turn limit.
func (s GameState) TurnLimit() (int, error) {
	if !s.HasTurnLimit() {
		return 0, fmt.Errorf("game: this game has no turn limit")
	}
	return s.turnLimit, nil
}

// TurnNumber returns the current turn counter.
func (s GameState) TurnNumber() int { return s.turnNumber }

// Commands returns the union of applicable actions, drawn from each
// action generator in the fixed order MOVE, SHOOT, CHARGE, FIGHT,
// END_PHASE (see commands.go).
func (s GameState) Commands() ([]Action, error) {
	if s.IsFinished() {
		return nil, fmt.Errorf("game: can't produce command list for a finished game")
	}
	var cmds []Action
	for _, generate := range commandGenerators {
		cmds = append(cmds, generate(s)...)
	}
	return cmds, nil
}

// IsFinished reports whether the game has ended: either team has zero
// units, or a turn limit is set and has been reached.
func (s GameState) IsFinished() bool {
	if s.HasTurnLimit() && s.turnNumber >= s.turnLimit {
		return true
	}
	count0, count1 := s.board.UnitCounts()
	return count0 == 0 || count1 == 0
}

// GameValue returns +1 if team won, -1 if team lost, 0 for a draw.
// Precondition: IsFinished().
func (s GameState) GameValue(team int) (int, error) {
	if !s.IsFinished() {
		return 0, fmt.Errorf("game: can't produce a game value for an unfinished game")
	}
	if team != 0 && team != 1 {
		return 0, fmt.Errorf("game: team must be 0 or 1, got %d", team)
	}

	count0, count1 := s.board.UnitCounts()
	counts := [2]int{count0, count1}
	ownEmpty := counts[team] == 0
	oppEmpty := counts[1-team] == 0

	switch {
	case ownEmpty && !oppEmpty:
		return -1, nil
	case !ownEmpty && oppEmpty:
		return 1, nil
	default:
		return 0, nil
	}
}

// Equal compares {internal_team, acting_team, phase, board}. Turn
// counters are deliberately excluded: the tree uses board/phase/team
// as its caching key, not wall-clock turn progress.
func (s GameState) Equal(o GameState) bool {
	return s.internalTeam == o.internalTeam &&
		s.actingTeam == o.actingTeam &&
		s.phase == o.phase &&
		s.board.Equal(o.board)
}

// String renders a diagnostic summary.
func (s GameState) String() string {
	return fmt.Sprintf("GameState(internal team = %d, acting team = %d, phase = %s, board = %s)",
		s.internalTeam, s.actingTeam, s.phase, s.board)
}

// mergeGameState is composeAction's merge primitive: duplicate states
// (by Equal) fold their probabilities together rather than appearing
// twice in the output distribution.
func mergeGameState(states []GameState, probs []float64, state GameState, prob float64) ([]GameState, []float64) {
	return mechanics.MergeDistinct(states, probs, state, prob, GameState.Equal)
}
