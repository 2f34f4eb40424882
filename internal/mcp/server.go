// Package mcp exposes the tribunal over the Model Context Protocol: a
// stdio server whose tools start audits, poll their progress, and fetch
// verdict reports.
package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dpopsuev/tribunal/internal/logging"
	"github.com/dpopsuev/tribunal/internal/store"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	DefaultReportTimeout = 10 * time.Second
	DefaultSessionTTL    = 5 * time.Minute
)

// Server wraps the MCP SDK server and manages audit sessions. One
// session runs at a time; a finished session is replaced on the next
// start_audit.
type Server struct {
	MCPServer *sdkmcp.Server
	Store     store.Store

	mu      sync.Mutex
	session *Session
}

// NewServer creates an MCP server exposing the audit tools. st may be
// nil, which disables run persistence and list_runs.
func NewServer(st store.Store) *Server {
	s := &Server{Store: st}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "tribunal", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "start_audit",
		Description: "Start an audit of a repository and its accompanying document. Spawns the run goroutine and returns a session ID.",
	}, s.handleStartAudit)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_audit_status",
		Description: "Report the current state of an audit session without blocking.",
	}, s.handleGetAuditStatus)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_report",
		Description: "Wait for the audit to finish and return the rendered verdict report.",
	}, s.handleGetReport)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_runs",
		Description: "List stored audit runs, newest first.",
	}, s.handleListRuns)
}

// --- Tool input/output types ---

type startAuditInput struct {
	RepoRef   string `json:"repo_ref" jsonschema:"git URL or local path of the repository under audit"`
	DocRef    string `json:"doc_ref" jsonschema:"path or URL of the accompanying document"`
	Generator string `json:"generator,omitempty" jsonschema:"opinion generator (stub)"`
	Workers   int    `json:"workers,omitempty" jsonschema:"concurrent nodes per stage (default 4)"`
	Force     bool   `json:"force,omitempty" jsonschema:"cancel any existing session and start fresh"`
}

type startAuditOutput struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type getAuditStatusInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID from start_audit"`
}

type getAuditStatusOutput struct {
	Status   string  `json:"status"`
	RunID    string  `json:"run_id,omitempty"`
	Overall  float64 `json:"overall,omitempty"`
	Unscored bool    `json:"unscored,omitempty"`
	Faults   int     `json:"faults,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type getReportInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID from start_audit"`
	TimeoutMS int    `json:"timeout_ms,omitempty" jsonschema:"max wait in milliseconds (default 10000)"`
}

type getReportOutput struct {
	Status string `json:"status"`
	RunID  string `json:"run_id,omitempty"`
	Report string `json:"report,omitempty"`
	Error  string `json:"error,omitempty"`
}

type listRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum rows to return (0 = all)"`
}

type runSummary struct {
	RunID      string  `json:"run_id"`
	RepoRef    string  `json:"repo_ref"`
	Status     string  `json:"status"`
	Overall    float64 `json:"overall"`
	Unscored   bool    `json:"unscored,omitempty"`
	Faults     int     `json:"faults"`
	StartedAt  string  `json:"started_at"`
	FinishedAt string  `json:"finished_at,omitempty"`
}

type listRunsOutput struct {
	Runs  []runSummary `json:"runs"`
	Total int          `json:"total"`
}

// --- Tool handlers ---

func (s *Server) handleStartAudit(_ context.Context, _ *sdkmcp.CallToolRequest, input startAuditInput) (*sdkmcp.CallToolResult, startAuditOutput, error) {
	logger := logging.New("mcp-session")
	s.mu.Lock()
	if s.session != nil {
		select {
		case <-s.session.Done():
			logger.Info("replacing finished session", "old_id", s.session.ID)
			s.session.Cancel()
		default:
			if input.Force {
				logger.Warn("force-replacing active session", "old_id", s.session.ID)
				s.session.Cancel()
			} else {
				s.mu.Unlock()
				return nil, startAuditOutput{}, fmt.Errorf("an audit session is already running (id=%s)", s.session.ID)
			}
		}
	}
	s.session = nil
	s.mu.Unlock()

	sess, err := NewSession(StartAuditInput{
		RepoRef:   input.RepoRef,
		DocRef:    input.DocRef,
		Generator: input.Generator,
		Workers:   input.Workers,
	}, s.Store)
	if err != nil {
		return nil, startAuditOutput{}, fmt.Errorf("start audit: %w", err)
	}
	sess.SetTTL(DefaultSessionTTL)

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	logger.Info("audit session started", "id", sess.ID, "repo", input.RepoRef, "doc", input.DocRef)
	return nil, startAuditOutput{SessionID: sess.ID, Status: string(StateRunning)}, nil
}

func (s *Server) handleGetAuditStatus(_ context.Context, _ *sdkmcp.CallToolRequest, input getAuditStatusInput) (*sdkmcp.CallToolResult, getAuditStatusOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, getAuditStatusOutput{}, err
	}
	sess.Touch()

	out := getAuditStatusOutput{Status: string(sess.GetState())}
	if res := sess.Result(); res != nil {
		out.RunID = res.RunID
		out.Overall = res.Overall
		out.Unscored = res.Unscored
		out.Faults = len(res.State.Faults)
	}
	if sessErr := sess.Err(); sessErr != nil {
		out.Error = sessErr.Error()
	}
	return nil, out, nil
}

func (s *Server) handleGetReport(ctx context.Context, _ *sdkmcp.CallToolRequest, input getReportInput) (*sdkmcp.CallToolResult, getReportOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, getReportOutput{}, err
	}
	sess.Touch()

	timeout := DefaultReportTimeout
	if input.TimeoutMS > 0 {
		timeout = time.Duration(input.TimeoutMS) * time.Millisecond
	}
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-sess.Done():
	case <-t.C:
		return nil, getReportOutput{Status: string(StateRunning)}, nil
	case <-ctx.Done():
		return nil, getReportOutput{}, ctx.Err()
	}

	out := getReportOutput{Status: string(sess.GetState())}
	if res := sess.Result(); res != nil {
		out.RunID = res.RunID
		out.Report = res.Report
	}
	if sessErr := sess.Err(); sessErr != nil {
		out.Error = sessErr.Error()
	}
	return nil, out, nil
}

func (s *Server) handleListRuns(_ context.Context, _ *sdkmcp.CallToolRequest, input listRunsInput) (*sdkmcp.CallToolResult, listRunsOutput, error) {
	if s.Store == nil {
		return nil, listRunsOutput{}, fmt.Errorf("no store configured")
	}
	runs, err := s.Store.ListRuns(input.Limit)
	if err != nil {
		return nil, listRunsOutput{}, fmt.Errorf("list runs: %w", err)
	}

	out := listRunsOutput{Total: len(runs)}
	for _, r := range runs {
		out.Runs = append(out.Runs, runSummary{
			RunID:      r.ID,
			RepoRef:    r.RepoRef,
			Status:     r.Status,
			Overall:    r.Overall,
			Unscored:   r.Unscored,
			Faults:     r.Faults,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
		})
	}
	return nil, out, nil
}

// SetSessionTTL configures the inactivity TTL on the current session.
// Primarily used for testing the watchdog with short durations.
func (s *Server) SetSessionTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.SetTTL(ttl)
	}
}

// SessionID returns the current session's ID, or empty string if none.
func (s *Server) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session.ID
	}
	return ""
}

// Shutdown cancels any active session, releasing runner goroutines.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Cancel()
		s.session = nil
	}
}

func (s *Server) getSession(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, fmt.Errorf("no active session (call start_audit first)")
	}
	if s.session.ID != id {
		return nil, fmt.Errorf("session_id mismatch: have %s, got %s", s.session.ID, id)
	}
	return s.session, nil
}
