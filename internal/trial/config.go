// Package trial assembles and drives a complete audit: detectives fan
// out over the submission, a cross-referencer correlates their output,
// the bench deliberates every criterion, and the chief justice
// synthesizes the verdicts into the final report.
package trial

import (
	"time"

	"github.com/dpopsuev/tribunal/internal/chambers"
	"github.com/dpopsuev/tribunal/internal/court"
	"github.com/dpopsuev/tribunal/internal/rubric"
)

// RunConfig holds configuration for one audit run.
type RunConfig struct {
	RepoRef string // git URL or local directory under audit
	DocRef  string // path or http(s) URL of the accompanying document

	Rubric    *rubric.Rubric         // criteria and weights
	Synthesis court.Config           // chief justice charter
	Drafting  chambers.AdapterConfig // opinion drafting policy

	Workers     int           // concurrent nodes within a stage
	Generators  int           // concurrent generator calls across the bench
	NodeTimeout time.Duration // per-node budget
	RunTimeout  time.Duration // global budget for the whole run
}

// DefaultRunConfig returns a RunConfig with production defaults for one
// submission.
func DefaultRunConfig(repoRef, docRef string) RunConfig {
	return RunConfig{
		RepoRef:     repoRef,
		DocRef:      docRef,
		Rubric:      rubric.Default(),
		Synthesis:   court.DefaultConfig(),
		Drafting:    chambers.DefaultAdapterConfig(),
		Workers:     4,
		Generators:  2,
		NodeTimeout: 90 * time.Second,
		RunTimeout:  10 * time.Minute,
	}
}
