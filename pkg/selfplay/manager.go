// Package selfplay implements the batched Select/Update/Commit driver
// that runs many MCTS-guided games concurrently, interleaving tree
// search with calls out to an external value/policy evaluator: a
// batch-collect/evaluate/backpropagate loop generalized from a single
// search tree to N concurrently running game trees.
package selfplay

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/samuelbarrett1234/40KLearn/pkg/game"
	"github.com/samuelbarrett1234/40KLearn/pkg/mcts"
)

// rootTeam is the canonical perspective every tree's value statistics
// are stored with respect to: all value estimates stored in the tree
// are with respect to team 0, by convention.
const rootTeam = 0

// gameEntry tracks one self-play game: its search tree root, a stable
// id assigned at Reset, and (once finished) its recorded value with
// respect to team 0.
type gameEntry struct {
	id       int
	root     *mcts.Node
	finished bool
	value    int
}

// Manager drives batched self-play across N concurrently running games.
// Not safe for concurrent use by multiple callers of Select/Update/Commit
// themselves (those form a strict protocol); the worker pools Manager
// spawns internally are the only parallelism.
type Manager struct {
	c              float64
	temperature    float64
	numSimulations int
	workers        int

	rngMu sync.Mutex
	rng   *rand.Rand

	policy mcts.UCB1Policy

	games   []*gameEntry // all games ever created by the current Reset, in id order
	running []int        // indices into games that have not yet finished

	waiting           bool
	selectedLeaves    []*mcts.Node // index-aligned with running, nil until Select runs
	pendingGameIdx    []int        // running-index of each non-terminal selected leaf, in Select/Update order
	pendingLeafStates []game.GameState
}

// New constructs a self-play manager. c is the UCB1 exploration
// constant, temperature scales the visit-count policy at Commit,
// numSimulations is the per-root sample budget before a tree is ready
// to commit, and workers bounds how many Select descents / Update jobs
// run concurrently (at least 1).
func New(c, temperature float64, numSimulations, workers int, seed int64) (*Manager, error) {
	if numSimulations <= 0 {
		return nil, fmt.Errorf("selfplay: numSimulations must be strictly positive, got %d", numSimulations)
	}
	if temperature < 0 {
		return nil, fmt.Errorf("selfplay: temperature must be nonnegative, got %g", temperature)
	}
	if workers < 1 {
		return nil, fmt.Errorf("selfplay: workers must be at least 1, got %d", workers)
	}
	policy, err := mcts.NewUCB1Policy(c, rootTeam)
	if err != nil {
		return nil, err
	}
	return &Manager{
		c:              c,
		temperature:    temperature,
		numSimulations: numSimulations,
		workers:        workers,
		rng:            rand.New(rand.NewSource(seed)),
		policy:         policy,
	}, nil
}

// Reset reinitializes the manager to numGames identical copies of
// initialState, each with a fresh root and a game id in 0..numGames-1.
// Requires !initialState.IsFinished().
func (m *Manager) Reset(numGames int, initialState game.GameState) error {
	if numGames <= 0 {
		return fmt.Errorf("selfplay: numGames must be strictly positive, got %d", numGames)
	}
	if initialState.IsFinished() {
		return fmt.Errorf("selfplay: can't reset to an already-finished state")
	}
	if m.waiting {
		return fmt.Errorf("selfplay: can't reset while waiting for Update")
	}

	games := make([]*gameEntry, numGames)
	running := make([]int, numGames)
	for i := 0; i < numGames; i++ {
		games[i] = &gameEntry{id: i, root: mcts.NewRoot(initialState)}
		running[i] = i
	}
	m.games = games
	m.running = running
	m.waiting = false
	m.selectedLeaves = nil
	m.pendingGameIdx = nil
	m.pendingLeafStates = nil
	return nil
}

// IsWaiting reports whether Select has run and Update has not yet
// consumed its output.
func (m *Manager) IsWaiting() bool { return m.waiting }

// AllFinished reports whether every game has terminated (or none were
// ever started).
func (m *Manager) AllFinished() bool { return len(m.running) == 0 }

// ReadyToCommit reports whether every running tree's root has
// accumulated at least numSimulations value samples.
func (m *Manager) ReadyToCommit() bool {
	if len(m.running) == 0 {
		return false
	}
	for _, idx := range m.running {
		if m.games[idx].root.NumEstimates() < int64(m.numSimulations) {
			return false
		}
	}
	return true
}

func (m *Manager) sampleIndex(weights []float64) int {
	m.rngMu.Lock()
	r := m.rng.Float64()
	m.rngMu.Unlock()

	r *= sum(weights)
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

func sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}

// Select descends every running tree whose root still needs samples,
// following the UCB1 tree policy and sampling among each chosen
// action's weighted children, until it reaches a leaf. Degenerate
// single-action non-terminal leaves are expanded in place (prior [1])
// and descent continues through them. Trees are searched concurrently;
// each tree owns its own descent, and every RNG draw made while
// descending is serialized (guarded by a mutex) since the manager holds
// a single RNG.
func (m *Manager) Select() ([]game.GameState, []int, error) {
	if m.waiting {
		return nil, nil, fmt.Errorf("selfplay: can't Select while waiting for Update")
	}
	if m.AllFinished() {
		return nil, nil, fmt.Errorf("selfplay: can't Select: all games finished")
	}
	if m.ReadyToCommit() {
		return nil, nil, fmt.Errorf("selfplay: can't Select: every tree is ready to commit")
	}

	leaves := make([]*mcts.Node, len(m.running))
	group := new(errgroup.Group)
	group.SetLimit(m.workers)
	for k, idx := range m.running {
		k, idx := k, idx
		group.Go(func() error {
			if m.games[idx].root.NumEstimates() >= int64(m.numSimulations) {
				leaves[k] = nil
				return nil
			}
			leaf, err := m.descend(m.games[idx].root)
			if err != nil {
				return err
			}
			leaves[k] = leaf
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	m.selectedLeaves = leaves
	m.pendingGameIdx = m.pendingGameIdx[:0]
	m.pendingLeafStates = m.pendingLeafStates[:0]
	for k, leaf := range leaves {
		if leaf != nil && !leaf.IsTerminal() {
			m.pendingGameIdx = append(m.pendingGameIdx, k)
			m.pendingLeafStates = append(m.pendingLeafStates, leaf.State())
		}
	}
	m.waiting = true
	return append([]game.GameState(nil), m.pendingLeafStates...), append([]int(nil), m.pendingGameIdx...), nil
}

func (m *Manager) descend(root *mcts.Node) (*mcts.Node, error) {
	node := root
	for {
		if node.IsTerminal() {
			return node, nil
		}
		if node.IsLeaf() {
			numActions, err := node.NumActions()
			if err != nil {
				return nil, err
			}
			if numActions != 1 {
				return node, nil
			}
			if err := node.Expand([]float64{1}); err != nil {
				return nil, err
			}
		}

		actionIdx, err := m.policy.ActionArgmax(node)
		if err != nil {
			return nil, err
		}
		_, probs, err := node.StateResultDistribution(actionIdx)
		if err != nil {
			return nil, err
		}
		j := m.sampleIndex(probs)
		child, err := node.ChildAt(actionIdx, j)
		if err != nil {
			return nil, err
		}
		node = child
	}
}

// Update consumes Select's non-terminal leaves: values and priors are
// parallel to the index list Select returned. Values are supplied with
// respect to each leaf's own acting team and negated here if that team
// isn't team 0, since the tree stores everything canonically with
// respect to team 0. Terminal leaves Select also selected (but did not
// return for evaluation) are backpropagated directly from GameValue(0),
// with no expansion.
func (m *Manager) Update(values []float64, priors [][]float64) error {
	if !m.waiting {
		return fmt.Errorf("selfplay: can't Update: not waiting (call Select first)")
	}
	if len(values) != len(m.pendingGameIdx) || len(priors) != len(m.pendingGameIdx) {
		return fmt.Errorf("selfplay: Update expected %d values/priors, got %d/%d",
			len(m.pendingGameIdx), len(values), len(priors))
	}

	group := new(errgroup.Group)
	group.SetLimit(m.workers)
	for k := range m.pendingGameIdx {
		k := k
		group.Go(func() error {
			leaf := m.selectedLeaves[m.pendingGameIdx[k]]
			actingTeam, err := leaf.State().ActingTeam()
			if err != nil {
				return err
			}
			v := values[k]
			if actingTeam != rootTeam {
				v = -v
			}
			if err := leaf.Expand(priors[k]); err != nil {
				return err
			}
			leaf.AddValueStatistic(v)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	for _, leaf := range m.selectedLeaves {
		if leaf != nil && leaf.IsTerminal() {
			v, err := leaf.State().GameValue(rootTeam)
			if err != nil {
				return err
			}
			leaf.AddValueStatistic(float64(v))
		}
	}

	m.waiting = false
	m.selectedLeaves = nil
	return nil
}

// finalPolicy computes the Commit-time action distribution from a
// root's visit counts: one-hot on the argmax when temperature is 0,
// otherwise visits^(1/temperature) normalized.
func finalPolicy(visits []int64, temperature float64) []float64 {
	out := make([]float64, len(visits))
	if temperature == 0 {
		best := 0
		for i, v := range visits {
			if v > visits[best] {
				best = i
			}
		}
		out[best] = 1
		return out
	}

	var total float64
	for i, v := range visits {
		out[i] = math.Pow(float64(v), 1/temperature)
		total += out[i]
	}
	if total == 0 {
		for i := range out {
			out[i] = 1.0 / float64(len(out))
		}
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// Commit samples and applies one move per running game from its
// root's final policy, detaching the chosen successor as the new root.
// Games that reach a terminal state are recorded with GameValue(0) and
// dropped from the running set. Sampling is single-threaded since it
// consumes the shared RNG sequentially; applying the chosen action and
// locating the matching child can in principle run concurrently across
// games, but the cost is dominated by the RNG draw so Commit is kept
// entirely sequential here for simplicity.
func (m *Manager) Commit() error {
	if m.waiting {
		return fmt.Errorf("selfplay: can't Commit while waiting for Update")
	}
	if m.AllFinished() {
		return fmt.Errorf("selfplay: can't Commit: all games finished")
	}
	if !m.ReadyToCommit() {
		return fmt.Errorf("selfplay: can't Commit: not every tree has reached its simulation budget")
	}

	stillRunning := m.running[:0]
	for _, idx := range m.running {
		entry := m.games[idx]
		visits, err := entry.root.VisitCounts()
		if err != nil {
			return err
		}
		policy := finalPolicy(visits, m.temperature)
		actionIdx := m.sampleIndex(policy)

		_, probs, err := entry.root.StateResultDistribution(actionIdx)
		if err != nil {
			return err
		}
		j := m.sampleIndex(probs)
		child, err := entry.root.ChildAt(actionIdx, j)
		if err != nil {
			return err
		}
		child.Detach()
		entry.root = child

		if child.IsTerminal() {
			v, err := child.State().GameValue(rootTeam)
			if err != nil {
				return err
			}
			entry.finished = true
			entry.value = v
		} else {
			stillRunning = append(stillRunning, idx)
		}
	}
	m.running = stillRunning
	return nil
}

// CurrentStates returns the root state of every currently running game,
// in running order.
func (m *Manager) CurrentStates() []game.GameState {
	out := make([]game.GameState, len(m.running))
	for i, idx := range m.running {
		out[i] = m.games[idx].root.State()
	}
	return out
}

// CurrentActionDistributions returns, for every currently running
// game, the temperature-scaled final policy its root would commit with
// right now (an all-zero vector if the root has not been expanded yet).
func (m *Manager) CurrentActionDistributions() ([][]float64, error) {
	out := make([][]float64, len(m.running))
	for i, idx := range m.running {
		root := m.games[idx].root
		if root.IsLeaf() {
			numActions, err := root.NumActions()
			if err != nil {
				return nil, err
			}
			out[i] = make([]float64, numActions)
			continue
		}
		visits, err := root.VisitCounts()
		if err != nil {
			return nil, err
		}
		out[i] = finalPolicy(visits, m.temperature)
	}
	return out, nil
}

// GameValues returns the recorded (team-0-relative) outcome of every
// game that has finished, keyed by game id.
func (m *Manager) GameValues() map[int]int {
	out := make(map[int]int)
	for _, g := range m.games {
		if g.finished {
			out[g.id] = g.value
		}
	}
	return out
}

// TreeSizes returns the number of nodes in each currently running
// game's search tree, in running order.
func (m *Manager) TreeSizes() ([]int, error) {
	out := make([]int, len(m.running))
	for i, idx := range m.running {
		n, err := treeSize(m.games[idx].root)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func treeSize(n *mcts.Node) (int, error) {
	if n.IsLeaf() {
		return 1, nil
	}
	count := 1
	numActions, err := n.ChildCount()
	if err != nil {
		return 0, err
	}
	for i := 0; i < numActions; i++ {
		states, _, err := n.StateResultDistribution(i)
		if err != nil {
			return 0, err
		}
		for j := range states {
			child, err := n.ChildAt(i, j)
			if err != nil {
				return 0, err
			}
			sub, err := treeSize(child)
			if err != nil {
				return 0, err
			}
			count += sub
		}
	}
	return count, nil
}

// RunningGameIDs returns the ids of every currently running game, in
// running order.
func (m *Manager) RunningGameIDs() []int {
	out := make([]int, len(m.running))
	for i, idx := range m.running {
		out[i] = m.games[idx].id
	}
	return out
}
