package game

import (
	"fmt"

	"github.com/samuelbarrett1234/40KLearn/pkg/board"
	"github.com/samuelbarrett1234/40KLearn/pkg/mechanics"
)

// ShootUnit fires the ranged weapon of the unit at Source against the
// unit at Target, yielding the binomial damage distribution.
type ShootUnit struct {
	Source, Target board.Position
}

func generateShootCommands(s GameState) []Action {
	if s.phase != SHOOTING {
		return nil
	}
	team := s.actingTeam
	positions, _ := s.board.AllUnitPositions(team)
	stats, _ := s.board.AllUnitStats(team)
	targets, _ := s.board.AllUnitPositions(1 - team)

	var cmds []Action
	for i, pos := range positions {
		u := stats[i]
		if u.FiredThisTurn || u.MovedOutOfCombatThisTurn {
			continue
		}
		if s.board.HasAdjacentEnemy(pos, team) {
			continue
		}
		if !u.HasStandardRangedWeapon() {
			continue
		}
		for _, tgt := range targets {
			if s.board.Distance(pos, tgt) > float64(u.RangedRange) {
				continue
			}
			if s.board.HasAdjacentEnemy(tgt, 1-team) {
				continue
			}
			cmds = append(cmds, ShootUnit{Source: pos, Target: tgt})
		}
	}
	return cmds
}

// Apply implements Action.
func (a ShootUnit) Apply(s GameState) ([]GameState, []float64, error) {
	if s.phase != SHOOTING {
		return nil, nil, fmt.Errorf("game: shoot requires the shooting phase")
	}

	occSrc, err := s.board.IsOccupied(a.Source)
	if err != nil {
		return nil, nil, err
	}
	occTgt, err := s.board.IsOccupied(a.Target)
	if err != nil {
		return nil, nil, err
	}
	if !occSrc || !occTgt {
		return nil, nil, fmt.Errorf("game: shoot requires units at both source and target")
	}

	team, err := s.board.TeamAt(a.Source)
	if err != nil {
		return nil, nil, err
	}
	tgtTeam, err := s.board.TeamAt(a.Target)
	if err != nil {
		return nil, nil, err
	}
	if team == tgtTeam {
		return nil, nil, fmt.Errorf("game: can't shoot a friendly unit")
	}
	if s.board.HasAdjacentEnemy(a.Source, team) {
		return nil, nil, fmt.Errorf("game: shooter at %v is in melee", a.Source)
	}
	if s.board.HasAdjacentEnemy(a.Target, tgtTeam) {
		return nil, nil, fmt.Errorf("game: target at %v is in melee", a.Target)
	}

	shooter, err := s.board.UnitAt(a.Source)
	if err != nil {
		return nil, nil, err
	}
	target, err := s.board.UnitAt(a.Target)
	if err != nil {
		return nil, nil, err
	}
	if shooter.MovedOutOfCombatThisTurn {
		return nil, nil, fmt.Errorf("game: unit at %v just left combat and can't shoot", a.Source)
	}

	distance := s.board.Distance(a.Source, a.Target)

	results, probs, err := mechanics.ResolveRawShootingDamage(shooter, target, distance)
	if err != nil {
		return nil, nil, err
	}

	shooter.FiredThisTurn = true

	var outStates []GameState
	var outProbs []float64
	for i, newTarget := range results {
		b, err := s.board.SetUnit(a.Source, shooter, team)
		if err != nil {
			return nil, nil, err
		}
		if newTarget.Count > 0 {
			b, err = b.SetUnit(a.Target, newTarget, tgtTeam)
		} else {
			b, err = b.Clear(a.Target)
		}
		if err != nil {
			return nil, nil, err
		}
		next, err := New(team, team, SHOOTING, b, s.turnLimit, s.turnNumber)
		if err != nil {
			return nil, nil, err
		}
		outStates = append(outStates, next)
		outProbs = append(outProbs, probs[i])
	}
	return outStates, outProbs, nil
}

// Equals implements Action.
func (a ShootUnit) Equals(other Action) bool {
	o, ok := other.(ShootUnit)
	return ok && a.Source == o.Source && a.Target == o.Target
}

// String implements Action.
func (a ShootUnit) String() string {
	return fmt.Sprintf("shoot order from (%d,%d) at (%d,%d)", a.Source.X, a.Source.Y, a.Target.X, a.Target.Y)
}

// Type implements Action.
func (a ShootUnit) Type() CommandType { return CommandUnitOrder }

// SourcePosition implements UnitOrderAction.
func (a ShootUnit) SourcePosition() board.Position { return a.Source }

// TargetPosition implements UnitOrderAction.
func (a ShootUnit) TargetPosition() board.Position { return a.Target }
