package main

import (
	"github.com/samuelbarrett1234/40KLearn/internal/config"
	"github.com/samuelbarrett1234/40KLearn/pkg/board"
	"github.com/samuelbarrett1234/40KLearn/pkg/game"
	"github.com/samuelbarrett1234/40KLearn/pkg/unit"
)

// tacticalSquad is the stock infantry profile every self-play round
// starts both sides with: deployed as a single five-model unit on
// opposite corners of the board.
func tacticalSquad(name string) unit.Unit {
	return unit.Unit{
		Name:        name,
		Count:       5,
		Movement:    6,
		WS:          3,
		BS:          3,
		T:           4,
		W:           1,
		TotalW:      5,
		A:           2,
		LD:          7,
		SV:          3,
		Inv:         7,
		RangedRange: 24,
		RangedS:     4,
		RangedAP:    -1,
		RangedDmg:   1,
		RangedShots: 1,
		MeleeS:      4,
		MeleeAP:     0,
		MeleeDmg:    1,
	}
}

// buildInitialState returns a new symmetric deployment: a squad for each
// team placed in opposite corners of a board sized per cfg.
func buildInitialState(cfg config.Config) (game.GameState, error) {
	b, err := board.New(cfg.Board.Size, cfg.Board.Scale)
	if err != nil {
		return game.GameState{}, err
	}

	last := cfg.Board.Size - 1
	b, err = b.SetUnit(board.Position{X: 0, Y: 0}, tacticalSquad("alpha"), 0)
	if err != nil {
		return game.GameState{}, err
	}
	b, err = b.SetUnit(board.Position{X: last, Y: last}, tacticalSquad("beta"), 1)
	if err != nil {
		return game.GameState{}, err
	}

	turnLimit := cfg.SelfPlay.TurnLimit
	if turnLimit <= 0 {
		turnLimit = -1
	}
	return game.New(0, 0, game.MOVEMENT, b, turnLimit, 0)
}
