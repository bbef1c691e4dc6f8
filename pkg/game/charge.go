package game

import (
	"fmt"

	"github.com/samuelbarrett1234/40KLearn/pkg/board"
	"github.com/samuelbarrett1234/40KLearn/pkg/mechanics"
)

// ChargeUnit moves the unit at Source to the empty cell Target, which
// is adjacent to an enemy, first resolving the Overwatch shots any eligible defenders get to
// take, then the two-dice charge-distance roll.
type ChargeUnit struct {
	Source, Target board.Position
	Overwatch       []Action
}

func generateChargeCommands(s GameState) []Action {
	if s.phase != CHARGE {
		return nil
	}
	team := s.actingTeam
	alliedPositions, _ := s.board.AllUnitPositions(team)
	alliedStats, _ := s.board.AllUnitStats(team)
	enemyPositions, _ := s.board.AllUnitPositions(1 - team)
	enemyStats, _ := s.board.AllUnitStats(1 - team)

	size := s.board.Size()
	seen := make(map[board.Position]bool)
	var destinations []board.Position
	for _, enemyPos := range enemyPositions {
		minX, maxX := max(0, enemyPos.X-1), min(size-1, enemyPos.X+1)
		minY, maxY := max(0, enemyPos.Y-1), min(size-1, enemyPos.Y+1)
		for x := minX; x <= maxX; x++ {
			for y := minY; y <= maxY; y++ {
				pos := board.Position{X: x, Y: y}
				if seen[pos] {
					continue
				}
				if occ, _ := s.board.IsOccupied(pos); !occ {
					seen[pos] = true
					destinations = append(destinations, pos)
				}
			}
		}
	}

	var cmds []Action
	for i, srcPos := range alliedPositions {
		u := alliedStats[i]
		if u.AttemptedChargeThisTurn || u.MovedOutOfCombatThisTurn {
			continue
		}
		if s.board.HasAdjacentEnemy(srcPos, team) {
			continue
		}
		if !u.HasStandardMeleeWeapon() {
			continue
		}
		for _, dstPos := range destinations {
			if s.board.Distance(srcPos, dstPos) > 12.0 {
				continue
			}

			var overwatch []Action
			for j, enemyPos := range enemyPositions {
				if !isAdjacent(enemyPos, dstPos) {
					continue
				}
				es := enemyStats[j]
				if !es.HasStandardRangedWeapon() {
					continue
				}
				if float64(es.RangedRange) < s.board.Distance(srcPos, enemyPos) {
					continue
				}
				if s.board.HasAdjacentEnemy(enemyPos, 1-team) {
					continue
				}
				overwatch = append(overwatch, OverwatchShot{Source: enemyPos, Target: srcPos})
			}

			cmds = append(cmds, ChargeUnit{Source: srcPos, Target: dstPos, Overwatch: overwatch})
		}
	}
	return cmds
}

// Apply implements Action: overwatch shots are composed onto the input
// state first, then the charge roll is applied to each resulting
// branch.
func (a ChargeUnit) Apply(s GameState) ([]GameState, []float64, error) {
	if s.phase != CHARGE {
		return nil, nil, fmt.Errorf("game: charge requires the charge phase")
	}

	workingStates := []GameState{s}
	workingProbs := []float64{1.0}
	var err error
	for _, ow := range a.Overwatch {
		workingStates, workingProbs, err = composeAction(ow, workingStates, workingProbs)
		if err != nil {
			return nil, nil, err
		}
	}

	var outStates []GameState
	var outProbs []float64
	for i, ws := range workingStates {
		states, probs, err := a.applyChargeStep(ws)
		if err != nil {
			return nil, nil, err
		}
		for j, r := range states {
			outStates, outProbs = mergeGameState(outStates, outProbs, r, probs[j]*workingProbs[i])
		}
	}
	return outStates, outProbs, nil
}

// applyChargeStep resolves the charge-distance roll for one
// post-overwatch branch.
func (a ChargeUnit) applyChargeStep(s GameState) ([]GameState, []float64, error) {
	occSrc, err := s.board.IsOccupied(a.Source)
	if err != nil {
		return nil, nil, err
	}
	if !occSrc {
		// The charger was destroyed by overwatch; nothing to do.
		return []GameState{s}, []float64{1.0}, nil
	}

	if s.phase != CHARGE {
		return nil, nil, fmt.Errorf("game: charge requires the charge phase")
	}
	occDst, err := s.board.IsOccupied(a.Target)
	if err != nil {
		return nil, nil, err
	}
	if occDst {
		return nil, nil, fmt.Errorf("game: charge target %v is occupied", a.Target)
	}

	team, err := s.board.TeamAt(a.Source)
	if err != nil {
		return nil, nil, err
	}
	if !s.board.HasAdjacentEnemy(a.Target, team) {
		return nil, nil, fmt.Errorf("game: charge target %v has no adjacent enemy", a.Target)
	}

	u, err := s.board.UnitAt(a.Source)
	if err != nil {
		return nil, nil, err
	}
	if !u.HasStandardMeleeWeapon() {
		return nil, nil, fmt.Errorf("game: unit at %v has no melee weapon", a.Source)
	}
	if u.AttemptedChargeThisTurn {
		return nil, nil, fmt.Errorf("game: unit at %v has already attempted a charge this turn", a.Source)
	}
	if u.MovedOutOfCombatThisTurn {
		return nil, nil, fmt.Errorf("game: unit at %v just left combat and can't charge", a.Source)
	}

	distance := s.board.Distance(a.Source, a.Target)
	pPass, pFail := mechanics.ChargeSuccessProbability(distance)
	if pPass <= 0 {
		return nil, nil, fmt.Errorf("game: charge target %v is unreachable", a.Target)
	}

	u.AttemptedChargeThisTurn = true

	var states []GameState
	var probs []float64

	if pFail > 0 {
		b, err := s.board.SetUnit(a.Source, u, team)
		if err != nil {
			return nil, nil, err
		}
		failState, err := New(team, team, CHARGE, b, s.turnLimit, s.turnNumber)
		if err != nil {
			return nil, nil, err
		}
		states = append(states, failState)
		probs = append(probs, pFail)
	}

	uPass := u
	uPass.SuccessfulChargeThisTurn = true
	b, err := s.board.Clear(a.Source)
	if err != nil {
		return nil, nil, err
	}
	b, err = b.SetUnit(a.Target, uPass, team)
	if err != nil {
		return nil, nil, err
	}
	passState, err := New(team, team, CHARGE, b, s.turnLimit, s.turnNumber)
	if err != nil {
		return nil, nil, err
	}
	states = append(states, passState)
	probs = append(probs, pPass)

	return states, probs, nil
}

// Equals implements Action. The overwatch list is derived
// deterministically from (Source, Target) and the board, so equality
// only needs to compare the order positions.
func (a ChargeUnit) Equals(other Action) bool {
	o, ok := other.(ChargeUnit)
	return ok && a.Source == o.Source && a.Target == o.Target
}

// String implements Action.
func (a ChargeUnit) String() string {
	return fmt.Sprintf("charge order from (%d,%d) to (%d,%d)", a.Source.X, a.Source.Y, a.Target.X, a.Target.Y)
}

// Type implements Action.
func (a ChargeUnit) Type() CommandType { return CommandUnitOrder }

// SourcePosition implements UnitOrderAction.
func (a ChargeUnit) SourcePosition() board.Position { return a.Source }

// TargetPosition implements UnitOrderAction.
func (a ChargeUnit) TargetPosition() board.Position { return a.Target }
