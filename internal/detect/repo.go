package detect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dpopsuev/tribunal/pkg/audit"
)

// Clone defaults.
const (
	DefaultCloneTimeout = 120 * time.Second
	DefaultCloneDepth   = 50
)

// RepoDetective investigates the submitted repository: it materializes
// a sandboxed clone, reads the commit history, and probes the tree for
// the structural signals the rubric cares about.
type RepoDetective struct {
	Ref          string
	Sandbox      *Sandbox
	CloneTimeout time.Duration
	CloneDepth   int

	runGit func(ctx context.Context, dir string, args ...string) (string, error)
}

// NewRepoDetective builds a detective for one repository reference,
// either a git URL or a local directory.
func NewRepoDetective(ref string, sb *Sandbox) *RepoDetective {
	return &RepoDetective{
		Ref:          ref,
		Sandbox:      sb,
		CloneTimeout: DefaultCloneTimeout,
		CloneDepth:   DefaultCloneDepth,
		runGit:       runGit,
	}
}

// ID is the collector key this detective's evidence files under.
func (d *RepoDetective) ID() string { return "repo_investigator" }

// Collect materializes the repository and returns its evidence. Any
// failure to reach or read the repository is returned as an error; the
// caller records it as a collection fault.
func (d *RepoDetective) Collect(ctx context.Context) ([]audit.Evidence, error) {
	dir, err := d.materialize(ctx)
	if err != nil {
		return nil, err
	}

	out, err := d.runGit(ctx, dir, "log", "--reverse", "--format=%H|||%s|||%ct")
	if err != nil {
		return nil, fmt.Errorf("git log failed: %v", err)
	}
	report := analyzeHistory(parseGitLog(out))

	ev := historyEvidence(d.Ref, report)
	ev = append(ev, structureEvidence(dir)...)
	return ev, nil
}

// materialize returns a readable working tree: the ref itself when it
// is a local directory, otherwise a shallow clone inside the sandbox.
func (d *RepoDetective) materialize(ctx context.Context) (string, error) {
	if info, err := os.Stat(d.Ref); err == nil && info.IsDir() {
		return d.Ref, nil
	}
	if d.Sandbox == nil {
		return "", errors.New("no sandbox for clone")
	}

	dest := d.Sandbox.RepoDir()
	cctx, cancel := context.WithTimeout(ctx, d.CloneTimeout)
	defer cancel()

	args := []string{"clone", fmt.Sprintf("--depth=%d", d.CloneDepth), d.Ref, dest}
	if _, err := d.runGit(cctx, "", args...); err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("git clone timed out after %s; repository may require authentication", d.CloneTimeout)
		}
		return "", fmt.Errorf("git clone failed: %v", err)
	}
	return dest, nil
}

// historyEvidence turns the forensic history report into evidence:
// the overall history, the phase progression, and the bulk-upload
// signature that arms the fact override when it fires.
func historyEvidence(ref string, r HistoryReport) []audit.Evidence {
	lines := make([]string, 0, 20)
	for i, c := range r.Commits {
		if i == 20 {
			break
		}
		hash := c.Hash
		if len(hash) > 8 {
			hash = hash[:8]
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", hash, c.Time.Format("2006-01-02"), c.Subject))
	}

	ev := []audit.Evidence{
		{
			Goal:       "commit_history",
			Found:      r.Total > 3 && !r.Bulk,
			Location:   ref,
			Confidence: historyConfidence(r),
			Rationale: fmt.Sprintf("%s [signals: commits=%d, progression=%v, bulk=%v]",
				r.Narrative, r.Total, r.Progression, r.Bulk),
			Content: strings.Join(lines, "\n"),
		},
		{
			Goal:       "commit_progression",
			Found:      r.Progression,
			Location:   ref,
			Confidence: 0.85,
			Rationale:  fmt.Sprintf("phase keywords matched: %s", strings.Join(r.Phases, ", ")),
		},
	}

	bulk := audit.Evidence{
		Goal:       "bulk_upload",
		Found:      r.Bulk,
		Location:   ref,
		Confidence: 0.95,
		Rationale:  "timestamps spread over a working history",
	}
	if r.Bulk {
		bulk.Severity = audit.SeverityHigh
		bulk.Rationale = fmt.Sprintf("%d commits within %s of each other; the history was uploaded, not written", r.Total, r.Span.Round(time.Second))
	}
	return append(ev, bulk)
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", errors.New(msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
