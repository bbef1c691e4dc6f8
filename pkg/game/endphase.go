package game


// EndPhase advances the game to the next phase (and, when wrapping out
// of the fight phase, the next turn and the next internal team). It is
// deterministic and never offered directly by GameState.Commands() —
// generateEndPhaseCommands always wraps it in a Composite alongside
// any pending morale checks.
type EndPhase struct{}

func nextPhaseOf(p Phase) Phase {
	switch p {
	case MOVEMENT:
		return SHOOTING
	case SHOOTING:
		return CHARGE
	case CHARGE:
		return FIGHT
	case FIGHT:
		return MOVEMENT
	default:
		return MOVEMENT
	}
}

func generateEndPhaseCommands(s GameState) []Action {
	if s.phase == FIGHT && len(fightableUnits(s.board, s.actingTeam)) > 0 {
		// Units on the acting team still have to fight before the phase
		// can end.
		return nil
	}

	var children []Action
	for team := 0; team <= 1; team++ {
		positions, _ := s.board.AllUnitPositions(team)
		stats, _ := s.board.AllUnitStats(team)
		for i, pos := range positions {
			if stats[i].ModelsLostThisPhase > 0 {
				children = append(children, MoraleCheck{Position: pos})
			}
		}
	}
	children = append(children, EndPhase{})
	return []Action{Composite{Actions: children, ReportedType: CommandEndPhase}}
}

// Apply implements Action.
func (a EndPhase) Apply(s GameState) ([]GameState, []float64, error) {
	resetFlags := s.phase == FIGHT
	b := s.board

	for team := 0; team <= 1; team++ {
		positions, err := b.AllUnitPositions(team)
		if err != nil {
			return nil, nil, err
		}
		for _, pos := range positions {
			u, err := b.UnitAt(pos)
			if err != nil {
				return nil, nil, err
			}
			u.ModelsLostThisPhase = 0
			if resetFlags {
				u.MovedThisTurn = false
				u.MovedOutOfCombatThisTurn = false
				u.FiredThisTurn = false
				u.AttemptedChargeThisTurn = false
				u.SuccessfulChargeThisTurn = false
				u.FoughtThisTurn = false
			}
			b, err = b.SetUnit(pos, u, team)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	nextPhase := nextPhaseOf(s.phase)
	nextInternal := s.internalTeam
	nextTurnNumber := s.turnNumber
	nextActing := s.actingTeam

	switch {
	case s.phase == FIGHT:
		if s.internalTeam == 1 {
			nextInternal = 0
			nextTurnNumber = s.turnNumber + 1
		} else {
			nextInternal = 1
		}
		nextActing = nextInternal
	case nextPhase == FIGHT:
		if len(fightableUnits(b, s.internalTeam)) == 0 && len(fightableUnits(b, 1-s.internalTeam)) > 0 {
			nextActing = 1 - s.internalTeam
		} else {
			nextActing = s.internalTeam
		}
	default:
		nextActing = s.internalTeam
	}

	next, err := New(nextInternal, nextActing, nextPhase, b, s.turnLimit, nextTurnNumber)
	if err != nil {
		return nil, nil, err
	}
	return []GameState{next}, []float64{1.0}, nil
}

// Equals implements Action.
func (a EndPhase) Equals(other Action) bool {
	_, ok := other.(EndPhase)
	return ok
}

// String implements Action.
func (a EndPhase) String() string {
	return "end phase command"
}

// Type implements Action.
func (a EndPhase) Type() CommandType { return CommandEndPhase }
