package game

import "strings"

// Composite sequences several actions one after another, threading the
// successor distribution of each through the next. ReportedType lets
// the composite masquerade as whatever command kind its caller needs
// (generateEndPhaseCommands reports CommandEndPhase for a composite of
// morale checks followed by an EndPhase, for instance).
type Composite struct {
	Actions      []Action
	ReportedType CommandType
}

// Apply implements Action.
func (a Composite) Apply(s GameState) ([]GameState, []float64, error) {
	states := []GameState{s}
	probs := []float64{1.0}
	var err error
	for _, child := range a.Actions {
		states, probs, err = composeAction(child, states, probs)
		if err != nil {
			return nil, nil, err
		}
	}
	return states, probs, nil
}

// Equals implements Action.
func (a Composite) Equals(other Action) bool {
	o, ok := other.(Composite)
	if !ok || len(a.Actions) != len(o.Actions) {
		return false
	}
	for i := range a.Actions {
		if !a.Actions[i].Equals(o.Actions[i]) {
			return false
		}
	}
	return true
}

// String implements Action.
func (a Composite) String() string {
	parts := make([]string, len(a.Actions))
	for i, child := range a.Actions {
		parts[i] = child.String()
	}
	return "composite[" + strings.Join(parts, "; ") + "]"
}

// Type implements Action.
func (a Composite) Type() CommandType { return a.ReportedType }
