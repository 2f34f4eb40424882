package audit

import "errors"

var (
	// ErrConfiguration wraps any graph defect detected at construction
	// time: a route without a catch-all, a transition to an undefined
	// stage, an empty node. A run never starts on a bad graph.
	ErrConfiguration = errors.New("audit: invalid configuration")

	// ErrRunAborted is returned by Run when the global deadline or an
	// external cancellation stopped dispatch. The state merged so far
	// remains valid and readable.
	ErrRunAborted = errors.New("audit: run aborted")
)

// FaultClass classifies a recorded runtime failure.
type FaultClass string

const (
	// FaultCollection marks an unreachable or malformed evidence source.
	// The run continues with empty evidence for that source.
	FaultCollection FaultClass = "collection"

	// FaultGeneration marks an opinion generator that never produced a
	// schema-conformant payload within its attempt budget. A degraded
	// opinion is substituted.
	FaultGeneration FaultClass = "generation"

	// FaultMerge marks a set-once field targeted twice with differing
	// values. The first value is kept.
	FaultMerge FaultClass = "merge"

	// FaultConfig marks a construction-time defect surfaced through a
	// session or status channel. It never appears in run state: a bad
	// graph aborts before the first stage.
	FaultConfig FaultClass = "config"
)

// Fault is one recorded failure. Runs continue past faults; the
// accumulated list is part of the externally visible output.
type Fault struct {
	Node    string     `json:"node"`
	Class   FaultClass `json:"class"`
	Message string     `json:"message"`
}

// String renders the canonical "<node-id>: <message>" entry form.
func (f Fault) String() string { return f.Node + ": " + f.Message }
