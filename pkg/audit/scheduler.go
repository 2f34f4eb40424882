package audit

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Limiter is a counting token semaphore bounding concurrent external
// calls across a fan-out group. A nil Limiter never blocks.
type Limiter chan struct{}

// NewLimiter returns a limiter with n tokens; n <= 0 means unlimited.
func NewLimiter(n int) Limiter {
	if n <= 0 {
		return nil
	}
	return make(Limiter, n)
}

// Acquire blocks until a token is available or ctx is done. It reports
// whether a token was taken; callers must Release iff it returns true.
func (l Limiter) Acquire(ctx context.Context) bool {
	if l == nil {
		return true
	}
	select {
	case l <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

// Release returns a token taken by Acquire.
func (l Limiter) Release() {
	if l == nil {
		return
	}
	<-l
}

// Pool dispatches one stage's nodes concurrently under a bounded worker
// pool and folds their deltas at the barrier.
type Pool struct {
	// Workers bounds concurrent nodes; <= 0 means one worker per node.
	Workers  int
	Executor Executor
}

// RunStage runs all nodes against snap, waits for every outcome (the
// barrier never proceeds on a partial set) and merges the deltas
// starting from snap. Merge commutativity makes the result independent
// of completion order.
func (p Pool) RunStage(ctx context.Context, nodes []Node, snap State) State {
	deltas := make([]Delta, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	if p.Workers > 0 {
		g.SetLimit(p.Workers)
	}
	for i, node := range nodes {
		g.Go(func() error {
			deltas[i] = p.Executor.Execute(gctx, node, snap)
			return nil
		})
	}
	// Executors never error; Wait is purely the barrier.
	_ = g.Wait()

	out := snap
	for _, d := range deltas {
		out = out.Merge(d)
	}
	return out
}
