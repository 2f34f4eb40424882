package audit

import (
	"context"
	"fmt"
	"time"
)

// Stage is one fan-out group of the audit graph: a set of nodes run
// concurrently against the same snapshot, merged at a barrier.
type Stage struct {
	ID    StageID
	Nodes []Node
}

// Config carries the engine's immutable construction parameters.
type Config struct {
	// Entry is the first stage dispatched.
	Entry StageID
	// Workers bounds concurrent nodes within a stage; <= 0 means one
	// worker per node.
	Workers int
	// NodeTimeout is the per-node budget; 0 means none.
	NodeTimeout time.Duration
	// RunTimeout is the global budget; 0 means none. On expiry Run
	// stops dispatching and returns the state merged so far.
	RunTimeout time.Duration
}

// DefaultConfig returns the production defaults for an entry stage.
func DefaultConfig(entry StageID) Config {
	return Config{
		Entry:       entry,
		Workers:     4,
		NodeTimeout: 90 * time.Second,
		RunTimeout:  10 * time.Minute,
	}
}

// Engine drives the staged DAG: dispatch a stage's fan-out group, wait
// at the barrier, merge, route, repeat until the terminal stage. The
// snapshot chain is the only shared state and only the engine loop
// advances it.
type Engine struct {
	cfg      Config
	stages   map[StageID]*Stage
	router   *Router
	pool     Pool
	observer Observer
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithObserver attaches a run observer.
func WithObserver(obs Observer) Option {
	return func(e *Engine) { e.observer = obs }
}

// New validates the whole graph shape and returns an engine. Any defect
// wraps ErrConfiguration: a run never starts on a bad graph.
func New(cfg Config, stages []Stage, router *Router, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:    cfg,
		stages: make(map[StageID]*Stage, len(stages)),
		router: router,
		pool: Pool{
			Workers:  cfg.Workers,
			Executor: Executor{Timeout: cfg.NodeTimeout},
		},
	}

	for i := range stages {
		st := &stages[i]
		if st.ID == "" || st.ID == StageTerminal {
			return nil, fmt.Errorf("%w: stage %d has reserved or empty id %q", ErrConfiguration, i, st.ID)
		}
		if _, dup := e.stages[st.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate stage %q", ErrConfiguration, st.ID)
		}
		for _, n := range st.Nodes {
			if n == nil || n.ID() == "" {
				return nil, fmt.Errorf("%w: stage %q references an undefined node", ErrConfiguration, st.ID)
			}
		}
		e.stages[st.ID] = st
	}

	if router == nil {
		return nil, fmt.Errorf("%w: nil router", ErrConfiguration)
	}
	if _, ok := e.stages[cfg.Entry]; !ok {
		return nil, fmt.Errorf("%w: entry stage %q not defined", ErrConfiguration, cfg.Entry)
	}
	for from, list := range router.routes {
		if _, ok := e.stages[from]; !ok {
			return nil, fmt.Errorf("%w: route table for undefined stage %q", ErrConfiguration, from)
		}
		for _, rt := range list {
			if rt.To == StageTerminal {
				continue
			}
			if _, ok := e.stages[rt.To]; !ok {
				return nil, fmt.Errorf("%w: route from %q targets undefined stage %q", ErrConfiguration, from, rt.To)
			}
		}
	}
	for id := range e.stages {
		if _, ok := router.routes[id]; !ok {
			return nil, fmt.Errorf("%w: stage %q has no route table", ErrConfiguration, id)
		}
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run executes the graph from the entry stage over seed and returns the
// final snapshot. On global timeout or cancellation it returns the
// state merged so far together with ErrRunAborted; that state is valid
// and readable, including any timeout faults recorded by in-flight
// nodes.
func (e *Engine) Run(ctx context.Context, seed State) (State, error) {
	if e.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RunTimeout)
		defer cancel()
	}

	state := seed
	cur := e.cfg.Entry
	for {
		if err := ctx.Err(); err != nil {
			emit(e.observer, Event{Type: EventRunAborted, Stage: cur, Err: err})
			return state, fmt.Errorf("%w: %v", ErrRunAborted, err)
		}

		stage := e.stages[cur]
		emit(e.observer, Event{Type: EventStageEnter, Stage: cur, Nodes: len(stage.Nodes)})
		start := time.Now()
		state = e.pool.RunStage(ctx, stage.Nodes, state)
		emit(e.observer, Event{Type: EventStageMerged, Stage: cur, Elapsed: time.Since(start)})

		next, why := e.router.Next(cur, state)
		emit(e.observer, Event{Type: EventTransition, Stage: cur, Next: next, Explanation: why})
		if next == StageTerminal {
			emit(e.observer, Event{Type: EventRunComplete, Stage: cur})
			return state, nil
		}
		cur = next
	}
}
