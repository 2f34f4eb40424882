// Package detect holds the detectives: deterministic collectors that
// gather evidence about a submission's repository and its accompanying
// document. Detectives never score; they report what they can verify,
// with a confidence derived from how they verified it.
package detect

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sandbox is a disposable working directory for one investigation.
// Clones land inside it and Cleanup removes everything.
type Sandbox struct {
	root string
}

// NewSandbox creates a fresh sandbox under the system temp directory.
func NewSandbox() (*Sandbox, error) {
	root, err := os.MkdirTemp("", "tribunal-*")
	if err != nil {
		return nil, fmt.Errorf("create sandbox: %w", err)
	}
	return &Sandbox{root: root}, nil
}

// Dir returns the sandbox root.
func (s *Sandbox) Dir() string { return s.root }

// RepoDir returns the path reserved for the repository clone.
func (s *Sandbox) RepoDir() string { return filepath.Join(s.root, "repo") }

// Cleanup removes the sandbox and everything inside it.
func (s *Sandbox) Cleanup() {
	if s == nil || s.root == "" {
		return
	}
	os.RemoveAll(s.root)
}
