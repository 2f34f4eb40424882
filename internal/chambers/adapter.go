package chambers

import (
	"context"
	"fmt"
	"time"

	"github.com/dpopsuev/tribunal/pkg/audit"
)

// AdapterConfig holds the drafting knobs.
type AdapterConfig struct {
	// MaxAttempts bounds generator calls per brief.
	MaxAttempts int
	// BackoffBase is the first wait after a rate-limit-class failure;
	// each further rate-limited attempt doubles it.
	BackoffBase time.Duration
	// DegradedScore is the neutral score substituted when every attempt
	// fails.
	DegradedScore int
}

// DefaultAdapterConfig returns the drafting defaults.
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		MaxAttempts:   3,
		BackoffBase:   time.Second,
		DegradedScore: 3,
	}
}

// Adapter drives a Generator to a usable opinion: bounded retries,
// backoff on rate limits, fallback extraction, and a degraded opinion
// plus one generation fault when everything fails. Draft never blocks a
// deliberation on a broken generator.
type Adapter struct {
	gen     Generator
	cfg     AdapterConfig
	limiter audit.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewAdapter wires a generator behind the drafting policy. limiter may
// be nil for unbounded concurrency.
func NewAdapter(gen Generator, cfg AdapterConfig, limiter audit.Limiter) (*Adapter, error) {
	if gen == nil {
		return nil, fmt.Errorf("%w: nil generator", audit.ErrConfiguration)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("%w: max attempts %d < 1", audit.ErrConfiguration, cfg.MaxAttempts)
	}
	if !audit.ValidScore(cfg.DegradedScore) {
		return nil, fmt.Errorf("%w: degraded score %d outside score domain", audit.ErrConfiguration, cfg.DegradedScore)
	}
	return &Adapter{gen: gen, cfg: cfg, limiter: limiter, sleep: sleepCtx}, nil
}

// Draft produces the opinion for one brief. The returned fault is nil
// unless the generator was exhausted, in which case the opinion is the
// degraded substitute and exactly one generation fault accompanies it.
func (a *Adapter) Draft(ctx context.Context, b Brief) (audit.Opinion, *audit.Fault) {
	var lastErr error
	backoff := a.cfg.BackoffBase

	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		if attempt > 1 && IsRateLimited(lastErr) {
			if err := a.sleep(ctx, backoff); err != nil {
				lastErr = err
				break
			}
			backoff *= 2
		}
		if !a.limiter.Acquire(ctx) {
			lastErr = ctx.Err()
			break
		}
		raw, err := a.gen.Generate(ctx, b)
		a.limiter.Release()
		if err != nil {
			lastErr = err
			continue
		}
		if op, ok := parseOpinion(raw); ok {
			op.CriterionID = b.Criterion.ID
			op.Role = b.Persona.Role
			return op, nil
		}
		lastErr = fmt.Errorf("attempt %d: payload not schema-conformant", attempt)
	}

	op := audit.Opinion{
		CriterionID: b.Criterion.ID,
		Role:        b.Persona.Role,
		Score:       a.cfg.DegradedScore,
		Rationale:   fmt.Sprintf("structural failure: no parsable opinion after %d attempts; last error: %v", a.cfg.MaxAttempts, lastErr),
		Recovered:   true,
	}
	fault := &audit.Fault{
		Node:  "judge-" + string(b.Persona.Role),
		Class: audit.FaultGeneration,
		Message: fmt.Sprintf("criterion %s: generator exhausted after %d attempts: %v",
			b.Criterion.ID, a.cfg.MaxAttempts, lastErr),
	}
	return op, fault
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
