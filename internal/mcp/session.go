package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dpopsuev/tribunal/internal/chambers"
	"github.com/dpopsuev/tribunal/internal/store"
	"github.com/dpopsuev/tribunal/internal/trial"
)

// SessionState tracks the lifecycle of an audit session.
type SessionState string

const (
	StateRunning SessionState = "running"
	StateDone    SessionState = "done"
	StateError   SessionState = "error"
)

// Session owns one audit run driven through MCP tool calls: the runner
// goroutine, its outcome, and an inactivity TTL that reclaims sessions
// whose client never came back.
type Session struct {
	ID      string
	RepoRef string
	DocRef  string

	state     SessionState
	result    *trial.Result
	err       error
	doneCh    chan struct{}
	cancel    context.CancelFunc
	ttlTimer  *time.Timer
	ttlWindow time.Duration

	mu sync.Mutex
}

// StartAuditInput mirrors the tool arguments for start_audit.
type StartAuditInput struct {
	RepoRef   string `json:"repo_ref"`
	DocRef    string `json:"doc_ref"`
	Generator string `json:"generator,omitempty"`
	Workers   int    `json:"workers,omitempty"`
}

// NewSession spawns the audit runner goroutine and returns immediately.
// st may be nil; the run is then kept only in the session.
func NewSession(input StartAuditInput, st store.Store) (*Session, error) {
	if input.RepoRef == "" || input.DocRef == "" {
		return nil, fmt.Errorf("repo_ref and doc_ref are required")
	}
	gen, err := resolveGenerator(input.Generator)
	if err != nil {
		return nil, err
	}

	cfg := trial.DefaultRunConfig(input.RepoRef, input.DocRef)
	if input.Workers > 0 {
		cfg.Workers = input.Workers
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	sess := &Session{
		ID:      uuid.NewString(),
		RepoRef: input.RepoRef,
		DocRef:  input.DocRef,
		state:   StateRunning,
		doneCh:  make(chan struct{}),
		cancel:  runCancel,
	}
	go sess.run(runCtx, trial.NewRunner(cfg, gen, st))
	return sess, nil
}

func resolveGenerator(name string) (chambers.Generator, error) {
	switch name {
	case "", "stub":
		return chambers.StubGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown generator: %s (available: stub)", name)
	}
}

// run executes the audit in a goroutine and captures the outcome. An
// aborted run still carries its partial result.
func (s *Session) run(ctx context.Context, runner *trial.Runner) {
	defer close(s.doneCh)
	defer s.cancel()

	res, err := runner.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = res
	if err != nil {
		s.state = StateError
		s.err = err
		return
	}
	s.state = StateDone
}

// Cancel aborts the run and releases the session's resources.
func (s *Session) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// SetTTL arms the inactivity timer: a session untouched for the whole
// window is cancelled.
func (s *Session) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ttlTimer != nil {
		s.ttlTimer.Stop()
	}
	s.ttlWindow = ttl
	s.ttlTimer = time.AfterFunc(ttl, s.Cancel)
}

// Touch resets the inactivity timer. Every tool call on the session
// counts as activity.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ttlTimer != nil {
		s.ttlTimer.Reset(s.ttlWindow)
	}
}

// GetState returns the current session state.
func (s *Session) GetState() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the run outcome, nil while the run is in flight.
func (s *Session) Result() *trial.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err returns the run's terminal error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done returns a channel that closes when the run finishes.
func (s *Session) Done() <-chan struct{} {
	return s.doneCh
}
