package game

import (
	"fmt"

	"github.com/samuelbarrett1234/40KLearn/pkg/board"
	"github.com/samuelbarrett1234/40KLearn/pkg/mechanics"
)

// FightUnit resolves one round of melee between the unit at Source and
// the unit at Target.
type FightUnit struct {
	Source, Target board.Position
}

// fightableUnits returns the positions of team's units that are both
// adjacent to an enemy and haven't fought this turn yet.
func fightableUnits(b board.Board, team int) []board.Position {
	positions, _ := b.AllUnitPositions(team)
	stats, _ := b.AllUnitStats(team)
	var out []board.Position
	for i, pos := range positions {
		if stats[i].FoughtThisTurn {
			continue
		}
		if b.HasAdjacentEnemy(pos, team) {
			out = append(out, pos)
		}
	}
	return out
}

func generateFightCommands(s GameState) []Action {
	if s.phase != FIGHT {
		return nil
	}
	team := s.actingTeam
	var cmds []Action
	positions, _ := s.board.AllUnitPositions(team)
	stats, _ := s.board.AllUnitStats(team)
	for i, srcPos := range positions {
		u := stats[i]
		if u.FoughtThisTurn {
			continue
		}
		if !u.HasStandardMeleeWeapon() {
			continue
		}
		if !s.board.HasAdjacentEnemy(srcPos, team) {
			continue
		}
		enemyPositions, _ := s.board.AllUnitPositions(1 - team)
		for _, tgtPos := range enemyPositions {
			if isAdjacent(srcPos, tgtPos) {
				cmds = append(cmds, FightUnit{Source: srcPos, Target: tgtPos})
			}
		}
	}
	return cmds
}

// nextFightActingTeam applies fight-phase team-alternation: priority
// goes to the opposing team's fightable units, falling back to the
// internal team if neither side has any left, and only staying with the
// current acting team as a last resort.
func nextFightActingTeam(b board.Board, internalTeam, actingTeam int) int {
	other := 1 - actingTeam
	if len(fightableUnits(b, other)) > 0 {
		return other
	}
	if len(fightableUnits(b, actingTeam)) > 0 {
		return actingTeam
	}
	return internalTeam
}

// Apply implements Action.
func (a FightUnit) Apply(s GameState) ([]GameState, []float64, error) {
	if s.phase != FIGHT {
		return nil, nil, fmt.Errorf("game: fight requires the fight phase")
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
		return nil, nil, fmt.Errorf("game: fight requires units at both source and target")
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
		return nil, nil, fmt.Errorf("game: can't fight a friendly unit")
	}
	if !isAdjacent(a.Source, a.Target) {
		return nil, nil, fmt.Errorf("game: fight target %v is not adjacent to %v", a.Target, a.Source)
	}

	fighter, err := s.board.UnitAt(a.Source)
	if err != nil {
		return nil, nil, err
	}
	if fighter.FoughtThisTurn {
		return nil, nil, fmt.Errorf("game: unit at %v has already fought this turn", a.Source)
	}
	if !fighter.HasStandardMeleeWeapon() {
		return nil, nil, fmt.Errorf("game: unit at %v has no melee weapon", a.Source)
	}
	target, err := s.board.UnitAt(a.Target)
	if err != nil {
		return nil, nil, err
	}

	results, probs, err := mechanics.ResolveRawMeleeDamage(fighter, target)
	if err != nil {
		return nil, nil, err
	}

	fighter.FoughtThisTurn = true

	var outStates []GameState
	var outProbs []float64
	for i, newTarget := range results {
		b, err := s.board.SetUnit(a.Source, fighter, team)
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

		// The acting team alternates between whichever sides still have
		// fightable units; the internal team itself never changes
		// mid-fight-phase.
		nextActing := nextFightActingTeam(b, s.internalTeam, s.actingTeam)
		next, err := New(s.internalTeam, nextActing, FIGHT, b, s.turnLimit, s.turnNumber)
		if err != nil {
			return nil, nil, err
		}
		outStates, outProbs = mergeGameState(outStates, outProbs, next, probs[i])
	}
	return outStates, outProbs, nil
}

// Equals implements Action.
func (a FightUnit) Equals(other Action) bool {
	o, ok := other.(FightUnit)
	return ok && a.Source == o.Source && a.Target == o.Target
}

// String implements Action.
func (a FightUnit) String() string {
	return fmt.Sprintf("fight order from (%d,%d) at (%d,%d)", a.Source.X, a.Source.Y, a.Target.X, a.Target.Y)
}

// Type implements Action.
func (a FightUnit) Type() CommandType { return CommandUnitOrder }

// SourcePosition implements UnitOrderAction.
func (a FightUnit) SourcePosition() board.Position { return a.Source }

// TargetPosition implements UnitOrderAction.
func (a FightUnit) TargetPosition() board.Position { return a.Target }
