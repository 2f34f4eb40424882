package chambers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dpopsuev/tribunal/internal/court"
	"github.com/dpopsuev/tribunal/internal/rubric"
	"github.com/dpopsuev/tribunal/pkg/audit"
)

func testBrief() Brief {
	return Brief{
		Persona: court.Bench()[0], // prosecutor
		Criterion: rubric.Criterion{
			ID:       "git_forensic_analysis",
			Category: "process",
		},
		Evidence: []audit.Evidence{
			{Goal: "commit_history", Found: true, Confidence: 1.0, Rationale: "40 commits"},
		},
	}
}

// fakeSleep records requested waits and returns instantly.
func fakeSleep(log *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*log = append(*log, d)
		return nil
	}
}

func TestDraft_FirstAttemptSucceeds(t *testing.T) {
	var calls atomic.Int32
	gen := GeneratorFunc(func(context.Context, Brief) (string, error) {
		calls.Add(1)
		return `{"score": 5, "rationale": "pristine history", "cited_evidence": ["commit_history"]}`, nil
	})
	a, err := NewAdapter(gen, DefaultAdapterConfig(), nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	op, fault := a.Draft(context.Background(), testBrief())
	if fault != nil {
		t.Fatalf("unexpected fault: %+v", fault)
	}
	if op.CriterionID != "git_forensic_analysis" || op.Role != audit.RoleProsecutor {
		t.Errorf("brief stamp missing: %+v", op)
	}
	if op.Score != 5 || op.Recovered {
		t.Errorf("got %+v", op)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestDraft_MalformedPayloadRetriesWithoutBackoff(t *testing.T) {
	var calls atomic.Int32
	gen := GeneratorFunc(func(context.Context, Brief) (string, error) {
		if calls.Add(1) < 3 {
			return "the bench is still thinking", nil
		}
		return `{"score": 2, "rationale": "weak evidence"}`, nil
	})
	a, err := NewAdapter(gen, DefaultAdapterConfig(), nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	var sleeps []time.Duration
	a.sleep = fakeSleep(&sleeps)

	op, fault := a.Draft(context.Background(), testBrief())
	if fault != nil {
		t.Fatalf("unexpected fault: %+v", fault)
	}
	if op.Score != 2 {
		t.Errorf("expected score 2, got %d", op.Score)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
	if len(sleeps) != 0 {
		t.Errorf("malformed payloads are not rate-limit-class; no backoff expected, got %v", sleeps)
	}
}

func TestDraft_RateLimitBackoffDoubles(t *testing.T) {
	var calls atomic.Int32
	gen := GeneratorFunc(func(context.Context, Brief) (string, error) {
		calls.Add(1)
		return "", fmt.Errorf("provider: %w", ErrRateLimited)
	})
	a, err := NewAdapter(gen, DefaultAdapterConfig(), nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	var sleeps []time.Duration
	a.sleep = fakeSleep(&sleeps)

	_, fault := a.Draft(context.Background(), testBrief())
	if fault == nil {
		t.Fatal("expected exhaustion fault")
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("expected %v backoffs, got %v", want, sleeps)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Errorf("backoff %d: expected %v, got %v", i, want[i], sleeps[i])
		}
	}
}

func TestDraft_MessageSniffedRateLimit(t *testing.T) {
	var calls atomic.Int32
	gen := GeneratorFunc(func(context.Context, Brief) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("HTTP 429 Too Many Requests")
		}
		return `{"score": 3, "rationale": "eventually served"}`, nil
	})
	a, err := NewAdapter(gen, DefaultAdapterConfig(), nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	var sleeps []time.Duration
	a.sleep = fakeSleep(&sleeps)

	op, fault := a.Draft(context.Background(), testBrief())
	if fault != nil {
		t.Fatalf("unexpected fault: %+v", fault)
	}
	if op.Score != 3 {
		t.Errorf("expected score 3, got %d", op.Score)
	}
	if len(sleeps) != 1 || sleeps[0] != time.Second {
		t.Errorf("expected a single base backoff, got %v", sleeps)
	}
}

func TestDraft_ExhaustionDegradesWithOneFault(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, Brief) (string, error) {
		return "nothing parsable, ever", nil
	})
	a, err := NewAdapter(gen, DefaultAdapterConfig(), nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	op, fault := a.Draft(context.Background(), testBrief())
	if fault == nil {
		t.Fatal("expected exactly one fault on exhaustion")
	}
	if fault.Class != audit.FaultGeneration {
		t.Errorf("expected generation fault, got %s", fault.Class)
	}
	if fault.Node != "judge-prosecutor" {
		t.Errorf("expected node judge-prosecutor, got %s", fault.Node)
	}
	if !strings.Contains(fault.Message, "git_forensic_analysis") {
		t.Errorf("fault should name the criterion, got %q", fault.Message)
	}
	if op.Score != 3 || !op.Recovered {
		t.Errorf("expected degraded neutral opinion, got %+v", op)
	}
	if !strings.Contains(op.Rationale, "structural failure") {
		t.Errorf("degraded rationale should say so, got %q", op.Rationale)
	}
}

func TestDraft_CancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	gen := GeneratorFunc(func(context.Context, Brief) (string, error) {
		calls.Add(1)
		cancel()
		return "", fmt.Errorf("socket closed: %w", ErrRateLimited)
	})
	a, err := NewAdapter(gen, DefaultAdapterConfig(), nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	start := time.Now()
	op, fault := a.Draft(ctx, testBrief())
	if time.Since(start) > 500*time.Millisecond {
		t.Error("cancelled draft should not serve the full backoff")
	}
	if fault == nil {
		t.Fatal("expected fault after cancellation")
	}
	if op.Role != audit.RoleProsecutor {
		t.Errorf("degraded opinion still carries the brief stamp, got %+v", op)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls.Load())
	}
}

func TestDraft_LimiterGatesGeneratorCalls(t *testing.T) {
	lim := audit.NewLimiter(1)
	release := make(chan struct{})
	var inFlight atomic.Int32
	gen := GeneratorFunc(func(context.Context, Brief) (string, error) {
		if inFlight.Add(1) > 1 {
			t.Error("limiter of 1 must serialize generator calls")
		}
		<-release
		inFlight.Add(-1)
		return `{"score": 4, "rationale": "measured"}`, nil
	})
	a, err := NewAdapter(gen, DefaultAdapterConfig(), lim)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			a.Draft(context.Background(), testBrief())
			done <- struct{}{}
		}()
	}
	// Let both goroutines reach the limiter, then drain.
	time.Sleep(50 * time.Millisecond)
	close(release)
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("draft did not finish")
		}
	}
}

func TestNewAdapter_Validation(t *testing.T) {
	if _, err := NewAdapter(nil, DefaultAdapterConfig(), nil); !errors.Is(err, audit.ErrConfiguration) {
		t.Errorf("nil generator: expected ErrConfiguration, got %v", err)
	}

	cfg := DefaultAdapterConfig()
	cfg.MaxAttempts = 0
	if _, err := NewAdapter(StubGenerator{}, cfg, nil); !errors.Is(err, audit.ErrConfiguration) {
		t.Errorf("zero attempts: expected ErrConfiguration, got %v", err)
	}

	cfg = DefaultAdapterConfig()
	cfg.DegradedScore = 7
	if _, err := NewAdapter(StubGenerator{}, cfg, nil); !errors.Is(err, audit.ErrConfiguration) {
		t.Errorf("degraded score outside domain: expected ErrConfiguration, got %v", err)
	}
}

func TestStubGenerator_DeterministicAndParsable(t *testing.T) {
	b := testBrief()
	b.Evidence = append(b.Evidence, audit.Evidence{Goal: "bulk_upload", Found: false, Confidence: 0.9})

	first, err := StubGenerator{}.Generate(context.Background(), b)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, _ := StubGenerator{}.Generate(context.Background(), b)
	if first != second {
		t.Errorf("stub must be deterministic:\n%s\n%s", first, second)
	}

	op, ok := parseOpinion(first)
	if !ok {
		t.Fatalf("stub payload must parse, got %q", first)
	}
	if !audit.ValidScore(op.Score) {
		t.Errorf("stub score outside domain: %d", op.Score)
	}
	if op.Recovered {
		t.Error("stub emits strict JSON; parse must not need recovery")
	}
}

func TestStubGenerator_ProsecutorHarsherThanDefense(t *testing.T) {
	b := testBrief()
	pro, _ := StubGenerator{}.Generate(context.Background(), b)
	b.Persona = court.Bench()[1] // defense
	def, _ := StubGenerator{}.Generate(context.Background(), b)

	pOp, _ := parseOpinion(pro)
	dOp, _ := parseOpinion(def)
	if pOp.Score > dOp.Score {
		t.Errorf("prosecutor (%d) should not outscore defense (%d) on the same brief", pOp.Score, dOp.Score)
	}
}
