// Package mockevaluator implements neural.Evaluator without a trained
// model: priors are uniform over a state's available commands, and
// values come from a material-count heuristic. It stands in for a real
// network in tests and in cmd/selfplay when no external evaluator is
// configured.
package mockevaluator

import (
	"fmt"

	"github.com/samuelbarrett1234/40KLearn/pkg/game"
	"github.com/samuelbarrett1234/40KLearn/pkg/neural"
)

// Evaluator is stateless; the zero value is ready to use.
type Evaluator struct{}

// New returns a ready-to-use mock evaluator.
func New() Evaluator { return Evaluator{} }

var _ neural.Evaluator = Evaluator{}

// EvaluateBatch implements neural.Evaluator.
func (Evaluator) EvaluateBatch(states []game.GameState) ([]float64, [][]float64, error) {
	values := make([]float64, len(states))
	priors := make([][]float64, len(states))
	for i, s := range states {
		v, err := materialValue(s)
		if err != nil {
			return nil, nil, fmt.Errorf("mockevaluator: %w", err)
		}
		values[i] = v

		cmds, err := s.Commands()
		if err != nil {
			return nil, nil, fmt.Errorf("mockevaluator: %w", err)
		}
		prior := make([]float64, len(cmds))
		if len(prior) > 0 {
			share := 1.0 / float64(len(prior))
			for j := range prior {
				prior[j] = share
			}
		}
		priors[i] = prior
	}
	return values, priors, nil
}

// materialValue returns the acting team's model-count advantage
// normalized to [-1, 1].
func materialValue(s game.GameState) (float64, error) {
	stats0, _ := s.Board().AllUnitStats(0)
	stats1, _ := s.Board().AllUnitStats(1)
	count0, count1 := 0, 0
	for _, u := range stats0 {
		count0 += u.Count
	}
	for _, u := range stats1 {
		count1 += u.Count
	}
	total := count0 + count1
	if total == 0 {
		return 0, nil
	}
	actingTeam, err := s.ActingTeam()
	if err != nil {
		return 0, err
	}
	own, opp := count0, count1
	if actingTeam == 1 {
		own, opp = count1, count0
	}
	return float64(own-opp) / float64(total), nil
}
