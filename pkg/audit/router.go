package audit

import "fmt"

// StageID names one stage of the audit graph.
type StageID string

// StageTerminal is the reserved final stage. Every route table must be
// able to reach it; routing to it stops dispatch.
const StageTerminal StageID = "_done"

// Predicate inspects a merged snapshot. Predicates must be pure: same
// state, same answer.
type Predicate func(State) bool

// Route is one conditional transition out of a stage. A nil When is
// the catch-all and always fires. Explanation is carried into observer
// events so transitions stay auditable.
type Route struct {
	When        Predicate
	To          StageID
	Explanation string
}

// Router picks the next stage from the state merged at a barrier.
// Route lists are ordered and first match wins. Totality is enforced at
// construction: every list ends with exactly one catch-all, so an
// unmatched state cannot exist at runtime.
type Router struct {
	routes map[StageID][]Route
}

// NewRouter validates the shape of every route list. Target stages are
// checked later by the engine, which knows the stage set.
func NewRouter(routes map[StageID][]Route) (*Router, error) {
	for stage, list := range routes {
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: stage %q has no routes", ErrConfiguration, stage)
		}
		for i, r := range list {
			last := i == len(list)-1
			if r.When == nil && !last {
				return nil, fmt.Errorf("%w: stage %q route %d: catch-all before end of list", ErrConfiguration, stage, i)
			}
			if last && r.When != nil {
				return nil, fmt.Errorf("%w: stage %q route list has no catch-all", ErrConfiguration, stage)
			}
			if r.To == "" {
				return nil, fmt.Errorf("%w: stage %q route %d has empty target", ErrConfiguration, stage, i)
			}
		}
	}
	return &Router{routes: routes}, nil
}

// Next returns the next stage for the merged state after from, plus the
// matched route's explanation. For any router accepted by NewRouter and
// an engine-validated stage set the mapping is total.
func (r *Router) Next(from StageID, s State) (StageID, string) {
	for _, rt := range r.routes[from] {
		if rt.When == nil || rt.When(s) {
			return rt.To, rt.Explanation
		}
	}
	// Unreachable for validated graphs: the engine rejects stages
	// without a route table.
	return StageTerminal, "no route table"
}
