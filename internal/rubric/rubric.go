// Package rubric defines what an audit measures: the criteria under
// review, the evidence goals that feed each criterion, and the weight
// each bench role carries per category.
package rubric

import (
	"fmt"

	"github.com/dpopsuev/tribunal/pkg/audit"
)

// Criterion is one dimension the bench scores. Goals name the evidence
// tags that inform it; an empty list means the criterion is argued from
// the full evidence pool.
type Criterion struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Category    string   `json:"category" yaml:"category"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Goals       []string `json:"goals,omitempty" yaml:"goals,omitempty"`
}

// Weights maps bench roles to their relative voice for one category.
// Values are relative, not normalized; the synthesizer normalizes over
// the roles that actually delivered an opinion.
type Weights map[audit.Role]float64

// Rubric is the full scoring contract for a run.
type Rubric struct {
	Criteria []Criterion        `json:"criteria" yaml:"criteria"`
	Weights  map[string]Weights `json:"weights" yaml:"weights"`
}

// Default returns the built-in rubric for auditing an agentic coding
// submission: a repository plus the document that claims to describe it.
func Default() *Rubric {
	return &Rubric{
		Criteria: []Criterion{
			{
				ID:          "git_forensic_analysis",
				Name:        "Git Forensic Analysis",
				Category:    "process",
				Description: "Does the commit history show real, incremental work?",
				Goals:       []string{"commit_history", "commit_progression", "bulk_upload"},
			},
			{
				ID:          "state_management_rigor",
				Name:        "State Management Rigor",
				Category:    "architecture",
				Description: "Is shared state merged through explicit, conflict-safe policies?",
				Goals:       []string{"state_definition", "merge_policy"},
			},
			{
				ID:          "graph_orchestration",
				Name:        "Graph Orchestration",
				Category:    "architecture",
				Description: "Are the pipeline stages wired as a graph with parallel fan-out?",
				Goals:       []string{"graph_wiring", "fan_out"},
			},
			{
				ID:          "defensive_error_handling",
				Name:        "Defensive Error Handling",
				Category:    "architecture",
				Description: "Do external calls retry, back off, and degrade instead of crashing?",
				Goals:       []string{"retry_logic", "fallback_path"},
			},
			{
				ID:          "documentation_fidelity",
				Name:        "Documentation Fidelity",
				Category:    "document",
				Description: "Does the document describe the system that was actually built?",
				Goals:       []string{"concept_coverage", "path_references", "hallucinated_paths"},
			},
		},
		Weights: map[string]Weights{
			"process": {
				audit.RoleProsecutor: 1,
				audit.RoleDefense:    1,
				audit.RoleTechLead:   1,
			},
			"architecture": {
				audit.RoleProsecutor: 1,
				audit.RoleDefense:    1,
				audit.RoleTechLead:   2,
			},
			"document": {
				audit.RoleProsecutor: 2,
				audit.RoleDefense:    1,
				audit.RoleTechLead:   1,
			},
		},
	}
}

// Validate checks the rubric against the bench that will score it.
// Every defect wraps audit.ErrConfiguration; a rubric that fails here
// must not reach the engine.
func (r *Rubric) Validate(bench []audit.Role) error {
	if len(r.Criteria) == 0 {
		return fmt.Errorf("%w: rubric has no criteria", audit.ErrConfiguration)
	}
	if len(bench) == 0 {
		return fmt.Errorf("%w: empty bench", audit.ErrConfiguration)
	}
	seen := make(map[string]bool, len(r.Criteria))
	for i, c := range r.Criteria {
		if c.ID == "" {
			return fmt.Errorf("%w: criterion %d has empty id", audit.ErrConfiguration, i)
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: duplicate criterion %q", audit.ErrConfiguration, c.ID)
		}
		seen[c.ID] = true
		if c.Category == "" {
			return fmt.Errorf("%w: criterion %q has empty category", audit.ErrConfiguration, c.ID)
		}
		w, ok := r.Weights[c.Category]
		if !ok {
			return fmt.Errorf("%w: criterion %q: no weights for category %q", audit.ErrConfiguration, c.ID, c.Category)
		}
		total := 0.0
		for _, role := range bench {
			v, ok := w[role]
			if !ok {
				return fmt.Errorf("%w: category %q has no weight for role %q", audit.ErrConfiguration, c.Category, role)
			}
			if v < 0 {
				return fmt.Errorf("%w: category %q: negative weight for role %q", audit.ErrConfiguration, c.Category, role)
			}
			total += v
		}
		if total == 0 {
			return fmt.Errorf("%w: category %q: all weights are zero", audit.ErrConfiguration, c.Category)
		}
	}
	return nil
}

// WeightsFor returns the role weights for a category, nil if undefined.
func (r *Rubric) WeightsFor(category string) Weights {
	return r.Weights[category]
}

// CriterionByID returns the criterion with the given id, nil if absent.
func (r *Rubric) CriterionByID(id string) *Criterion {
	for i := range r.Criteria {
		if r.Criteria[i].ID == id {
			return &r.Criteria[i]
		}
	}
	return nil
}

// DisplayName returns the criterion's name, falling back to its id.
func (c Criterion) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// Relevant filters an evidence pool down to this criterion's goals.
// A criterion with no declared goals is argued from the whole pool.
func (c Criterion) Relevant(pool []audit.Evidence) []audit.Evidence {
	if len(c.Goals) == 0 {
		return pool
	}
	goals := make(map[string]bool, len(c.Goals))
	for _, g := range c.Goals {
		goals[g] = true
	}
	var out []audit.Evidence
	for _, ev := range pool {
		if goals[ev.Goal] {
			out = append(out, ev)
		}
	}
	return out
}
