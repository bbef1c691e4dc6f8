package game

import (
	"fmt"

	"github.com/samuelbarrett1234/40KLearn/pkg/board"
	"github.com/samuelbarrett1234/40KLearn/pkg/mechanics"
)

// OverwatchShot is a helper action attached to a ChargeUnit: Source is
// the defending shooter, Target is the charger's origin cell. It is
// never offered directly by GameState.Commands(); it only ever appears
// nested inside a ChargeUnit's overwatch list.
type OverwatchShot struct {
	Source, Target board.Position
}

// Apply implements Action. If Target is already unoccupied (the
// charger was destroyed by an earlier overwatch shot in the same
// charge), this is a no-op passthrough.
func (a OverwatchShot) Apply(s GameState) ([]GameState, []float64, error) {
	occTarget, err := s.board.IsOccupied(a.Target)
	if err != nil {
		return nil, nil, err
	}
	if !occTarget {
		return []GameState{s}, []float64{1.0}, nil
	}

	if s.phase != CHARGE {
		return nil, nil, fmt.Errorf("game: overwatch requires the charge phase")
	}
	occSrc, err := s.board.IsOccupied(a.Source)
	if err != nil {
		return nil, nil, err
	}
	if !occSrc {
		return nil, nil, fmt.Errorf("game: no shooter at overwatch source %v", a.Source)
	}

	srcTeam, err := s.board.TeamAt(a.Source)
	if err != nil {
		return nil, nil, err
	}
	tgtTeam, err := s.board.TeamAt(a.Target)
	if err != nil {
		return nil, nil, err
	}
	if srcTeam == tgtTeam {
		return nil, nil, fmt.Errorf("game: can't overwatch a friendly unit")
	}
	if s.board.HasAdjacentEnemy(a.Source, srcTeam) {
		return nil, nil, fmt.Errorf("game: overwatch shooter at %v is in melee", a.Source)
	}
	if s.board.HasAdjacentEnemy(a.Target, tgtTeam) {
		return nil, nil, fmt.Errorf("game: overwatch target at %v is in melee", a.Target)
	}

	shooter, err := s.board.UnitAt(a.Source)
	if err != nil {
		return nil, nil, err
	}
	distance := s.board.Distance(a.Source, a.Target)
	if distance > float64(shooter.RangedRange) {
		return nil, nil, fmt.Errorf("game: overwatch target %v out of range", a.Target)
	}
	if !shooter.HasStandardRangedWeapon() {
		return nil, nil, fmt.Errorf("game: overwatch shooter at %v has no ranged weapon", a.Source)
	}

	// Overwatch always hits on a 6, regardless of the shooter's usual
	// ballistic skill.
	shooter.BS = 6

	target, err := s.board.UnitAt(a.Target)
	if err != nil {
		return nil, nil, err
	}

	results, probs, err := mechanics.ResolveRawShootingDamage(shooter, target, distance)
	if err != nil {
		return nil, nil, err
	}

	var outStates []GameState
	var outProbs []float64
	for i, newTarget := range results {
		var b board.Board
		var err error
		if newTarget.Count > 0 {
			b, err = s.board.SetUnit(a.Target, newTarget, tgtTeam)
		} else {
			b, err = s.board.Clear(a.Target)
		}
		if err != nil {
			return nil, nil, err
		}
		next, err := New(s.internalTeam, s.actingTeam, s.phase, b, s.turnLimit, s.turnNumber)
		if err != nil {
			return nil, nil, err
		}
		outStates = append(outStates, next)
		outProbs = append(outProbs, probs[i])
	}
	return outStates, outProbs, nil
}

// Equals implements Action.
func (a OverwatchShot) Equals(other Action) bool {
	o, ok := other.(OverwatchShot)
	return ok && a.Source == o.Source && a.Target == o.Target
}

// String implements Action.
func (a OverwatchShot) String() string {
	return fmt.Sprintf("overwatch shot from (%d,%d) at (%d,%d)", a.Source.X, a.Source.Y, a.Target.X, a.Target.Y)
}

// Type implements Action. Overwatch is reported as a helper: it can
// only ever be reached nested inside a ChargeUnit.
func (a OverwatchShot) Type() CommandType { return CommandHelper }

// SourcePosition implements UnitOrderAction.
func (a OverwatchShot) SourcePosition() board.Position { return a.Source }

// TargetPosition implements UnitOrderAction.
func (a OverwatchShot) TargetPosition() board.Position { return a.Target }
