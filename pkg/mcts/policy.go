package mcts

import (
	"fmt"
	"math"
)

// UCB1Policy is the tree-descent rule: at a non-leaf node, pick the
// action maximizing a team-signed exploitation term plus a
// prior-weighted exploration bonus. Unlike a single-player always-maximize
// UCB, the sign flips for the opposing team, since this engine's value
// estimates are stored canonically with respect to one team throughout
// the tree rather than recomputed per node's own perspective.
type UCB1Policy struct {
	C        float64
	RootTeam int
}

// NewUCB1Policy constructs a policy with exploration constant c and
// canonical perspective rootTeam.
func NewUCB1Policy(c float64, rootTeam int) (UCB1Policy, error) {
	if c < 0 {
		return UCB1Policy{}, fmt.Errorf("mcts: exploration constant must be nonnegative, got %g", c)
	}
	if rootTeam != 0 && rootTeam != 1 {
		return UCB1Policy{}, fmt.Errorf("mcts: root team must be 0 or 1, got %d", rootTeam)
	}
	return UCB1Policy{C: c, RootTeam: rootTeam}, nil
}

// ActionArgmax returns the index of the action UCB1 selects at n.
// Defined only for non-leaf nodes.
func (p UCB1Policy) ActionArgmax(n *Node) (int, error) {
	if n.IsLeaf() {
		return 0, fmt.Errorf("mcts: UCB1 is undefined at a leaf node")
	}
	actingTeam, err := n.state.ActingTeam()
	if err != nil {
		return 0, err
	}
	priors, err := n.Prior()
	if err != nil {
		return 0, err
	}
	values, err := n.ActionValueEstimates()
	if err != nil {
		return 0, err
	}
	visits, err := n.VisitCounts()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, v := range visits {
		total += v
	}
	logN := 0.0
	if total > 0 {
		logN = math.Log(float64(total))
	}

	sign := 1.0
	if actingTeam != p.RootTeam {
		sign = -1.0
	}

	best := -1
	bestUCB := math.Inf(-1)
	for i := range priors {
		exploration := p.C * priors[i] * math.Sqrt(logN/(1+float64(visits[i])))
		ucb := sign*values[i] + exploration
		if best == -1 || ucb > bestUCB {
			best = i
			bestUCB = ucb
		}
	}
	if best == -1 {
		return 0, fmt.Errorf("mcts: node has no actions to choose among")
	}
	return best, nil
}
