package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExecutor_SuccessPassesDeltaThrough(t *testing.T) {
	node := NodeFunc{Name: "ok", Fn: func(_ context.Context, _ State) (Delta, error) {
		return Delta{Opinions: []Opinion{{CriterionID: "c", Role: RoleDefense, Score: 3}}}, nil
	}}

	d := Executor{}.Execute(context.Background(), node, NewState("", ""))
	if len(d.Opinions) != 1 || len(d.Faults) != 0 {
		t.Fatalf("unexpected delta: %+v", d)
	}
}

func TestExecutor_ErrorBecomesSingleFault(t *testing.T) {
	node := NodeFunc{Name: "doc_analyst", Fn: func(_ context.Context, _ State) (Delta, error) {
		return Delta{}, errors.New("document unreachable")
	}}

	d := Executor{}.Execute(context.Background(), node, NewState("", ""))
	if len(d.Faults) != 1 {
		t.Fatalf("expected 1 fault, got %d", len(d.Faults))
	}
	f := d.Faults[0]
	if f.String() != "doc_analyst: document unreachable" {
		t.Errorf("fault entry = %q", f.String())
	}
	if f.Class != FaultCollection {
		t.Errorf("fault class = %q, want collection", f.Class)
	}
	if len(d.Evidence) != 0 || len(d.Opinions) != 0 {
		t.Errorf("failure delta carries contributions: %+v", d)
	}
}

func TestExecutor_DeclaredFaultClassWins(t *testing.T) {
	node := NodeFunc{Name: "judge", Class: FaultGeneration, Fn: func(_ context.Context, _ State) (Delta, error) {
		return Delta{}, errors.New("boom")
	}}

	d := Executor{}.Execute(context.Background(), node, NewState("", ""))
	if d.Faults[0].Class != FaultGeneration {
		t.Errorf("fault class = %q, want generation", d.Faults[0].Class)
	}
}

func TestExecutor_TimeoutBecomesFault(t *testing.T) {
	node := NodeFunc{Name: "slow", Fn: func(ctx context.Context, _ State) (Delta, error) {
		select {
		case <-time.After(5 * time.Second):
			return Delta{}, nil
		case <-ctx.Done():
			return Delta{}, ctx.Err()
		}
	}}

	start := time.Now()
	d := Executor{Timeout: 20 * time.Millisecond}.Execute(context.Background(), node, NewState("", ""))
	if time.Since(start) > 2*time.Second {
		t.Fatal("executor did not honor the per-node timeout")
	}
	if len(d.Faults) != 1 {
		t.Fatalf("expected 1 fault, got %d", len(d.Faults))
	}
	if !strings.HasPrefix(d.Faults[0].String(), "slow: ") {
		t.Errorf("fault entry = %q, want slow: prefix", d.Faults[0].String())
	}
}

func TestExecutor_UnresponsiveNodeStillTimesOut(t *testing.T) {
	// A node that ignores ctx entirely must not hold up the barrier.
	node := NodeFunc{Name: "stuck", Fn: func(_ context.Context, _ State) (Delta, error) {
		time.Sleep(3 * time.Second)
		return Delta{}, nil
	}}

	start := time.Now()
	d := Executor{Timeout: 20 * time.Millisecond}.Execute(context.Background(), node, NewState("", ""))
	if time.Since(start) > time.Second {
		t.Fatal("executor waited for an unresponsive node")
	}
	if len(d.Faults) != 1 {
		t.Fatalf("expected 1 fault, got %d", len(d.Faults))
	}
}

func TestExecutor_PanicBecomesFault(t *testing.T) {
	node := NodeFunc{Name: "panicky", Fn: func(_ context.Context, _ State) (Delta, error) {
		panic("index out of range")
	}}

	d := Executor{}.Execute(context.Background(), node, NewState("", ""))
	if len(d.Faults) != 1 {
		t.Fatalf("expected 1 fault, got %d", len(d.Faults))
	}
	if !strings.Contains(d.Faults[0].Message, "index out of range") {
		t.Errorf("panic message lost: %q", d.Faults[0].Message)
	}
}
