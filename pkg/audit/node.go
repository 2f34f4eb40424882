package audit

import (
	"context"
	"fmt"
	"time"
)

// Node is one unit of audit work: read a snapshot, contribute a delta.
// Implementations see the snapshot taken before their group started and
// never see sibling deltas, so behavior must not depend on scheduling
// order. A Node that talks to an external service should respect ctx.
type Node interface {
	ID() string
	Run(ctx context.Context, snap State) (Delta, error)
}

// NodeFunc adapts a plain function to the Node interface. Class is the
// fault class recorded when Fn fails; zero value means collection.
type NodeFunc struct {
	Name  string
	Class FaultClass
	Fn    func(ctx context.Context, snap State) (Delta, error)
}

func (n NodeFunc) ID() string { return n.Name }

func (n NodeFunc) Run(ctx context.Context, snap State) (Delta, error) {
	return n.Fn(ctx, snap)
}

// FaultClass reports the class recorded for this node's failures.
func (n NodeFunc) FaultClass() FaultClass { return n.Class }

// Executor runs one node against one snapshot, converting every failure
// mode (returned error, per-node timeout, panic) into a delta with a
// single fault entry. Sibling work and the barrier are never affected.
type Executor struct {
	// Timeout is the per-node budget; 0 means no limit.
	Timeout time.Duration
}

type nodeOutcome struct {
	delta Delta
	err   error
}

// Execute never fails: the returned delta is either the node's own
// contribution or a FaultDelta in the "<node-id>: <message>" form.
func (e Executor) Execute(ctx context.Context, node Node, snap State) Delta {
	nctx := ctx
	cancel := func() {}
	if e.Timeout > 0 {
		nctx, cancel = context.WithTimeout(ctx, e.Timeout)
	}
	defer cancel()

	ch := make(chan nodeOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- nodeOutcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		d, err := node.Run(nctx, snap)
		ch <- nodeOutcome{delta: d, err: err}
	}()

	var out nodeOutcome
	select {
	case out = <-ch:
	case <-nctx.Done():
		out = nodeOutcome{err: nctx.Err()}
	}
	if out.err != nil {
		return FaultDelta(node.ID(), classOf(node), out.err.Error())
	}
	return out.delta
}

// classOf asks the node for its fault class; nodes that don't declare
// one are treated as evidence sources.
func classOf(node Node) FaultClass {
	if fc, ok := node.(interface{ FaultClass() FaultClass }); ok {
		if c := fc.FaultClass(); c != "" {
			return c
		}
	}
	return FaultCollection
}
