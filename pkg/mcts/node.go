// Package mcts implements the search tree: a Node holding chance-weighted
// children per action, weighted backpropagation through those chance
// edges, and the UCB1 tree policy used to descend it. Children are
// weighted distributions rather than single deterministic successors,
// since this engine's chance nodes fan out over a probability
// distribution of outcomes, and visit counts accumulate atomically so
// Select/Update worker pools can share ancestor chains safely.
package mcts

import (
	"fmt"
	"sync/atomic"

	"github.com/samuelbarrett1234/40KLearn/internal/atomicfloat"
	"github.com/samuelbarrett1234/40KLearn/pkg/game"
)

// edge is one weighted child produced by applying a single action to a
// node's state: one of the action's possibly-many successor states,
// tagged with its arrival probability.
type edge struct {
	child  *Node
	weight float64
}

// Node is a state node in the search tree. The parent pointer is a
// non-owning borrow: a Node's lifetime is governed by whichever Node
// currently holds it in its children, all the way up to whatever the
// driver currently calls the root.
type Node struct {
	state       game.GameState
	parent      *Node
	wFromParent float64

	expanded bool
	actions  []game.Action // lazily populated, valid whether or not expanded
	prior    []float64     // len(prior) == len(actions), set by Expand
	children [][]edge      // children[i] are action i's weighted successors

	valueSum     float64
	weightSum    float64
	numEstimates int64
}

// NewRoot creates an unexpanded root node for state.
func NewRoot(state game.GameState) *Node {
	return &Node{state: state}
}

// State returns the game state this node represents.
func (n *Node) State() game.GameState { return n.state }

// IsRoot reports whether n has no parent.
func (n *Node) IsRoot() bool { return n.parent == nil }

// IsLeaf reports whether n has not yet been expanded. Terminal states
// count as leaves even though they can never be expanded.
func (n *Node) IsLeaf() bool { return !n.expanded }

// IsTerminal reports whether n's state has finished.
func (n *Node) IsTerminal() bool { return n.state.IsFinished() }

func (n *Node) actionList() ([]game.Action, error) {
	if n.actions == nil {
		cmds, err := n.state.Commands()
		if err != nil {
			return nil, err
		}
		n.actions = cmds
	}
	return n.actions, nil
}

// NumActions returns the number of actions available at this node.
func (n *Node) NumActions() (int, error) {
	actions, err := n.actionList()
	if err != nil {
		return 0, err
	}
	return len(actions), nil
}

// Expand populates n's children, one weighted successor set per action,
// applying each action to n's state via the transition algebra. Requires
// n to be a non-terminal leaf and len(prior) to match the action count.
func (n *Node) Expand(prior []float64) error {
	if !n.IsLeaf() {
		return fmt.Errorf("mcts: can't expand a node that is already expanded")
	}
	if n.IsTerminal() {
		return fmt.Errorf("mcts: can't expand a terminal node")
	}
	actions, err := n.actionList()
	if err != nil {
		return err
	}
	if len(prior) != len(actions) {
		return fmt.Errorf("mcts: prior length %d does not match action count %d", len(prior), len(actions))
	}

	children := make([][]edge, len(actions))
	for i, a := range actions {
		states, probs, err := a.Apply(n.state)
		if err != nil {
			return err
		}
		edges := make([]edge, len(states))
		for j, s := range states {
			edges[j] = edge{
				child:  &Node{state: s, parent: n, wFromParent: probs[j]},
				weight: probs[j],
			}
		}
		children[i] = edges
	}

	n.children = children
	n.prior = prior
	n.expanded = true
	return nil
}

// AddValueStatistic backpropagates v from n up to the root, weighting by
// the product of w_from_parent along the path so a node's value estimate
// is the expectation over leaf values weighted by reach probability.
func (n *Node) AddValueStatistic(v float64) {
	runningWeight := 1.0
	for cur := n; cur != nil; cur = cur.parent {
		atomicfloat.Add(&cur.valueSum, v*runningWeight)
		atomicfloat.Add(&cur.weightSum, runningWeight)
		atomic.AddInt64(&cur.numEstimates, 1)
		if cur.parent != nil {
			runningWeight *= cur.wFromParent
		}
	}
}

// ValueEstimate is value_sum / weight_sum, or 0 if n has never been
// sampled.
func (n *Node) ValueEstimate() float64 {
	if atomic.LoadInt64(&n.numEstimates) == 0 {
		return 0
	}
	ws := atomicfloat.Read(&n.weightSum)
	if ws == 0 {
		return 0
	}
	return atomicfloat.Read(&n.valueSum) / ws
}

// NumEstimates is the number of times AddValueStatistic has touched n.
func (n *Node) NumEstimates() int64 { return atomic.LoadInt64(&n.numEstimates) }

// Detach severs n's parent back-pointer, making n usable as a new root.
func (n *Node) Detach() {
	if n.IsRoot() {
		panic("mcts: can't detach the root")
	}
	n.parent = nil
	n.wFromParent = 0
}

// Prior returns the per-action prior supplied at Expand. Requires !IsLeaf().
func (n *Node) Prior() ([]float64, error) {
	if n.IsLeaf() {
		return nil, fmt.Errorf("mcts: prior is undefined for a leaf node")
	}
	return n.prior, nil
}

// VisitCounts returns, per action, the sum of num_estimates across that
// action's children. Requires !IsLeaf().
func (n *Node) VisitCounts() ([]int64, error) {
	if n.IsLeaf() {
		return nil, fmt.Errorf("mcts: visit counts are undefined for a leaf node")
	}
	counts := make([]int64, len(n.children))
	for i, edges := range n.children {
		for _, e := range edges {
			counts[i] += e.child.NumEstimates()
		}
	}
	return counts, nil
}

// ActionValueEstimates returns, per action, the edge-weighted average of
// ValueEstimate() over that action's visited children (children with
// num_estimates == 0 don't contribute). An action with no visited
// children defaults to 0. Requires !IsLeaf().
func (n *Node) ActionValueEstimates() ([]float64, error) {
	if n.IsLeaf() {
		return nil, fmt.Errorf("mcts: action value estimates are undefined for a leaf node")
	}
	values := make([]float64, len(n.children))
	for i, edges := range n.children {
		var weightedSum, weightTotal float64
		for _, e := range edges {
			if e.child.NumEstimates() == 0 {
				continue
			}
			weightedSum += e.weight * e.child.ValueEstimate()
			weightTotal += e.weight
		}
		if weightTotal > 0 {
			values[i] = weightedSum / weightTotal
		}
	}
	return values, nil
}

// StateResults returns, for action i, the list of successor states it
// can produce. Requires !IsLeaf().
func (n *Node) StateResults(i int) ([]game.GameState, error) {
	if n.IsLeaf() {
		return nil, fmt.Errorf("mcts: state results are undefined for a leaf node")
	}
	if i < 0 || i >= len(n.children) {
		return nil, fmt.Errorf("mcts: action index %d out of range", i)
	}
	out := make([]game.GameState, len(n.children[i]))
	for j, e := range n.children[i] {
		out[j] = e.child.state
	}
	return out, nil
}

// StateResultDistribution returns, for action i, the successor states
// paired with their arrival probabilities, in the same order Apply
// produced them. Requires !IsLeaf().
func (n *Node) StateResultDistribution(i int) ([]game.GameState, []float64, error) {
	if n.IsLeaf() {
		return nil, nil, fmt.Errorf("mcts: state result distribution is undefined for a leaf node")
	}
	if i < 0 || i >= len(n.children) {
		return nil, nil, fmt.Errorf("mcts: action index %d out of range", i)
	}
	states := make([]game.GameState, len(n.children[i]))
	probs := make([]float64, len(n.children[i]))
	for j, e := range n.children[i] {
		states[j] = e.child.state
		probs[j] = e.weight
	}
	return states, probs, nil
}

// ChildAt returns the action-i child produced at distribution index j.
// Requires !IsLeaf().
func (n *Node) ChildAt(i, j int) (*Node, error) {
	if n.IsLeaf() {
		return nil, fmt.Errorf("mcts: children are undefined for a leaf node")
	}
	if i < 0 || i >= len(n.children) {
		return nil, fmt.Errorf("mcts: action index %d out of range", i)
	}
	if j < 0 || j >= len(n.children[i]) {
		return nil, fmt.Errorf("mcts: child index %d out of range for action %d", j, i)
	}
	return n.children[i][j].child, nil
}

// ChildCount returns the number of distinct actions at this node (the
// same value NumActions would report once expanded). Requires !IsLeaf().
func (n *Node) ChildCount() (int, error) {
	if n.IsLeaf() {
		return 0, fmt.Errorf("mcts: child count is undefined for a leaf node")
	}
	return len(n.children), nil
}

// Action returns the action at index i.
func (n *Node) Action(i int) (game.Action, error) {
	actions, err := n.actionList()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(actions) {
		return nil, fmt.Errorf("mcts: action index %d out of range", i)
	}
	return actions[i], nil
}
