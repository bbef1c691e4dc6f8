// Package neural defines the boundary between the core self-play driver
// and whatever produces value/prior estimates for a leaf GameState: a
// remote service over gRPC, an in-process ONNX model, or a deterministic
// stand-in for testing. pkg/selfplay depends only on the Evaluator
// interface; it never imports a concrete adapter.
package neural

import (
	"github.com/samuelbarrett1234/40KLearn/pkg/board"
	"github.com/samuelbarrett1234/40KLearn/pkg/game"
)

// Evaluator estimates, for a batch of non-terminal leaf states, a value
// (conventionally in [-1, 1], with respect to each state's own acting
// team — pkg/selfplay.Manager negates it onto team 0's canonical
// perspective before backpropagating) and a prior distribution over
// each state's own Commands() ordering. len(values) and len(priors)
// must equal len(states); priors[i] must have len(cmds) entries for
// cmds, _ := states[i].Commands().
type Evaluator interface {
	EvaluateBatch(states []game.GameState) (values []float64, priors [][]float64, err error)
}

// FeatureVector flattens a GameState into the fixed-width numeric
// encoding every adapter in this package feeds to its model: one
// (team0Count, team1Count) pair per board cell in row-major order,
// followed by the acting team and phase as trailing scalars. Two states
// of the same board size always produce vectors of the same length.
func FeatureVector(s game.GameState) []float64 {
	b := s.Board()
	size := b.Size()
	out := make([]float64, 0, size*size*2+2)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			pos := board.Position{X: x, Y: y}
			occ, _ := b.IsOccupied(pos)
			if !occ {
				out = append(out, 0, 0)
				continue
			}
			team, _ := b.TeamAt(pos)
			u, _ := b.UnitAt(pos)
			if team == 0 {
				out = append(out, float64(u.Count), 0)
			} else {
				out = append(out, 0, float64(u.Count))
			}
		}
	}
	actingTeam, _ := s.ActingTeam()
	phase, _ := s.CurrentPhase()
	out = append(out, float64(actingTeam), float64(phase))
	return out
}
