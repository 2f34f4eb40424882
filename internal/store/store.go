// Package store persists finished audits. The CLI and the MCP server
// use only the Store interface; the implementation is SQLite or
// in-memory.
package store

// DefaultDBPath is the default relative path for the SQLite DB.
// Resolve against cwd; Open() creates the parent dir (e.g. .tribunal).
const DefaultDBPath = ".tribunal/tribunal.db"

// Run lifecycle states.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Run is one persisted audit: the references, the outcome summary, the
// rendered report, and the full merged state as JSON.
type Run struct {
	ID         string
	RepoRef    string
	DocRef     string
	Status     string
	Overall    float64 // mean of scored verdicts; meaningless when Unscored
	Unscored   bool    // no criterion reached a score
	Faults     int
	Report     string // rendered Markdown
	State      []byte // merged state JSON
	StartedAt  string
	FinishedAt string
}

// VerdictRow is the queryable per-criterion outcome of one run.
type VerdictRow struct {
	RunID       string
	CriterionID string
	Final       int
	Unscored    bool
	Dissent     bool
}

// Store is the persistence facade for audit runs.
type Store interface {
	// SaveRun inserts the run, or updates it when the ID already
	// exists. Verdict rows are replaced wholesale on every save.
	SaveRun(run *Run, verdicts []VerdictRow) error
	// GetRun returns the run by ID, or nil when it does not exist.
	GetRun(id string) (*Run, error)
	// ListRuns returns runs newest-first. limit <= 0 means all.
	ListRuns(limit int) ([]*Run, error)
	// ListVerdicts returns the verdict rows of one run in criterion order.
	ListVerdicts(runID string) ([]VerdictRow, error)
	Close() error
}
