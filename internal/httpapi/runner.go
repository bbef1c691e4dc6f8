// Package httpapi exposes a running self-play Manager over HTTP: a
// gorilla/mux JSON control surface for polling game status, and (via the
// live subpackage) a gorilla/websocket feed of Commit events for
// spectators. Runner owns the Select/Update/Commit driver loop; Server
// only reads the Manager's state, never mutates it.
package httpapi

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/samuelbarrett1234/40KLearn/internal/httpapi/live"
	"github.com/samuelbarrett1234/40KLearn/pkg/game"
	"github.com/samuelbarrett1234/40KLearn/pkg/neural"
	"github.com/samuelbarrett1234/40KLearn/pkg/selfplay"
)

// Runner drives a selfplay.Manager to completion against an Evaluator,
// round after round, broadcasting a live.Event to hub after every
// Commit and every time a batch of games finishes and a fresh round is
// reset.
type Runner struct {
	manager     *selfplay.Manager
	evaluator   neural.Evaluator
	hub         *live.Hub
	log         zerolog.Logger
	numGames    int
	makeInitial func() (game.GameState, error)

	matchID string
}

// NewRunner wires a Manager, an Evaluator, and a spectator hub together.
// makeInitial is called at the start of every round (including the
// first) to produce the root GameState for that round's numGames games.
func NewRunner(manager *selfplay.Manager, evaluator neural.Evaluator, hub *live.Hub, log zerolog.Logger, numGames int, makeInitial func() (game.GameState, error)) *Runner {
	return &Runner{
		manager:     manager,
		evaluator:   evaluator,
		hub:         hub,
		log:         log,
		numGames:    numGames,
		makeInitial: makeInitial,
		matchID:     uuid.New().String()[:8],
	}
}

// MatchID identifies this Runner's current round of games, reassigned
// every time Run resets the manager for a fresh round.
func (r *Runner) MatchID() string { return r.matchID }

// Run drives self-play rounds until ctx is cancelled. Each round resets
// the manager to a freshly built initial state and plays numGames games
// concurrently to completion, one Select/Update/Commit cycle at a time.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		initial, err := r.makeInitial()
		if err != nil {
			return fmt.Errorf("httpapi: build initial state: %w", err)
		}
		r.matchID = uuid.New().String()[:8]
		if err := r.manager.Reset(r.numGames, initial); err != nil {
			return fmt.Errorf("httpapi: reset: %w", err)
		}
		r.log.Info().Str("match", r.matchID).Int("games", r.numGames).Msg("round started")

		for !r.manager.AllFinished() {
			if err := ctx.Err(); err != nil {
				return nil
			}

			if err := r.step(); err != nil {
				return err
			}
		}

		for id, v := range r.manager.GameValues() {
			r.hub.Broadcast(live.Event{
				MatchID:  r.matchID,
				GameID:   id,
				Finished: true,
				Value:    v,
			})
		}
		r.log.Info().Str("match", r.matchID).Msg("round finished")
	}
}

func (r *Runner) step() error {
	if !r.manager.IsWaiting() {
		if r.manager.ReadyToCommit() {
			if err := r.manager.Commit(); err != nil {
				return fmt.Errorf("httpapi: commit: %w", err)
			}
			r.broadcastRunning()
			return nil
		}

		states, _, err := r.manager.Select()
		if err != nil {
			return fmt.Errorf("httpapi: select: %w", err)
		}

		values, priors, err := r.evaluator.EvaluateBatch(states)
		if err != nil {
			return fmt.Errorf("httpapi: evaluate batch of %d states: %w", len(states), err)
		}
		if err := r.manager.Update(values, priors); err != nil {
			return fmt.Errorf("httpapi: update: %w", err)
		}
	}
	return nil
}

func (r *Runner) broadcastRunning() {
	ids := r.manager.RunningGameIDs()
	sizes, err := r.manager.TreeSizes()
	if err != nil {
		r.log.Warn().Err(err).Msg("tree sizes unavailable for broadcast")
		return
	}
	states := r.manager.CurrentStates()
	for i, id := range ids {
		r.hub.Broadcast(live.Event{
			MatchID:  r.matchID,
			GameID:   id,
			Board:    states[i].Board().String(),
			TreeSize: sizes[i],
		})
	}
}
