package game

import (
	"fmt"

	"github.com/samuelbarrett1234/40KLearn/pkg/board"
)

// MoveUnit moves the unit at Source to Target. Deterministic: it
// always yields exactly one successor.
type MoveUnit struct {
	Source, Target board.Position
}

func generateMoveCommands(s GameState) []Action {
	if s.phase != MOVEMENT {
		return nil
	}
	team := s.actingTeam
	positions, _ := s.board.AllUnitPositions(team)
	stats, _ := s.board.AllUnitStats(team)

	var cmds []Action
	for i, pos := range positions {
		u := stats[i]
		if u.MovedThisTurn {
			continue
		}
		for _, dst := range s.board.SquaresInRange(pos, float64(u.Movement)) {
			if dst == pos {
				continue
			}
			if occ, _ := s.board.IsOccupied(dst); occ {
				continue
			}
			if s.board.HasAdjacentEnemy(dst, team) {
				continue
			}
			cmds = append(cmds, MoveUnit{Source: pos, Target: dst})
		}
	}
	return cmds
}

// Apply implements Action.
func (a MoveUnit) Apply(s GameState) ([]GameState, []float64, error) {
	if s.phase != MOVEMENT {
		return nil, nil, fmt.Errorf("game: move requires the movement phase")
	}
	occSrc, err := s.board.IsOccupied(a.Source)
	if err != nil {
		return nil, nil, err
	}
	if !occSrc {
		return nil, nil, fmt.Errorf("game: no unit at move source %v", a.Source)
	}
	occDst, err := s.board.IsOccupied(a.Target)
	if err != nil {
		return nil, nil, err
	}
	if occDst {
		return nil, nil, fmt.Errorf("game: move target %v is occupied", a.Target)
	}

	team, err := s.board.TeamAt(a.Source)
	if err != nil {
		return nil, nil, err
	}
	if s.board.HasAdjacentEnemy(a.Target, team) {
		return nil, nil, fmt.Errorf("game: can't move into melee at %v", a.Target)
	}

	u, err := s.board.UnitAt(a.Source)
	if err != nil {
		return nil, nil, err
	}
	if u.MovedThisTurn {
		return nil, nil, fmt.Errorf("game: unit at %v has already moved this turn", a.Source)
	}

	u.MovedThisTurn = true
	u.MovedOutOfCombatThisTurn = s.board.HasAdjacentEnemy(a.Source, team)

	b, err := s.board.Clear(a.Source)
	if err != nil {
		return nil, nil, err
	}
	b, err = b.SetUnit(a.Target, u, team)
	if err != nil {
		return nil, nil, err
	}

	next, err := New(team, team, MOVEMENT, b, s.turnLimit, s.turnNumber)
	if err != nil {
		return nil, nil, err
	}
	return []GameState{next}, []float64{1.0}, nil
}

// Equals implements Action.
func (a MoveUnit) Equals(other Action) bool {
	o, ok := other.(MoveUnit)
	return ok && a.Source == o.Source && a.Target == o.Target
}

// String implements Action.
func (a MoveUnit) String() string {
	return fmt.Sprintf("movement order from (%d,%d) to (%d,%d)", a.Source.X, a.Source.Y, a.Target.X, a.Target.Y)
}

// Type implements Action.
func (a MoveUnit) Type() CommandType { return CommandUnitOrder }

// SourcePosition implements UnitOrderAction.
func (a MoveUnit) SourcePosition() board.Position { return a.Source }

// TargetPosition implements UnitOrderAction.
func (a MoveUnit) TargetPosition() board.Position { return a.Target }
