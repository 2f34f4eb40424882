// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output, markdown reports, logs, and docs.
// Keep raw codes for JSON fields, map keys, and equality comparisons.
package display

import "strings"

// --- Criteria ---

var criteria = map[string]string{
	"git_forensic_analysis":    "Git Forensic Analysis",
	"state_management_rigor":   "State Management Rigor",
	"graph_orchestration":      "Graph Orchestration",
	"defensive_error_handling": "Defensive Error Handling",
	"documentation_fidelity":   "Documentation Fidelity",
}

// Criterion returns the human-readable name for a criterion ID.
// Unknown IDs are humanized from snake_case: "custom_check" -> "Custom Check".
func Criterion(id string) string {
	if name, ok := criteria[id]; ok {
		return name
	}
	return humanize(id)
}

// CriterionWithID returns "Git Forensic Analysis (git_forensic_analysis)" format.
func CriterionWithID(id string) string {
	return Criterion(id) + " (" + id + ")"
}

// --- Bench Roles ---

var roles = map[string]string{
	"prosecutor": "Prosecutor",
	"defense":    "Defense",
	"techlead":   "Tech Lead",
}

// Role returns the human-readable name for a bench role code.
// Unknown codes are humanized.
func Role(code string) string {
	if name, ok := roles[code]; ok {
		return name
	}
	return humanize(code)
}

// --- Fault Classes ---

var faultClasses = map[string]string{
	"collection":    "Collection Failure",
	"generation":    "Generation Failure",
	"merge":         "Merge Conflict",
	"configuration": "Configuration Error",
}

// FaultClass returns the human-readable name for a fault class code.
func FaultClass(code string) string {
	if name, ok := faultClasses[code]; ok {
		return name
	}
	return humanize(code)
}

// --- Severities ---

var severities = map[string]string{
	"none":     "None",
	"low":      "Low",
	"medium":   "Medium",
	"high":     "High",
	"critical": "Critical",
}

// Severity returns the human-readable name for a severity code.
func Severity(code string) string {
	if name, ok := severities[code]; ok {
		return name
	}
	return humanize(code)
}

// --- Trial Stages ---

var stages = map[string]string{
	"investigate": "Investigation",
	"correlate":   "Correlation",
	"deliberate":  "Deliberation",
	"synthesize":  "Synthesis",
	"_done":       "Done",
}

// Stage returns the human-readable name for a trial stage ID.
// "deliberate" -> "Deliberation".
func Stage(id string) string {
	if name, ok := stages[id]; ok {
		return name
	}
	return humanize(id)
}

// StagePath converts a slice of stage IDs to a human-readable path.
// ["investigate", "deliberate"] -> "Investigation -> Deliberation"
func StagePath(ids []string) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = Stage(id)
	}
	return strings.Join(names, " → ")
}

// --- Goals ---

// Goal humanizes an evidence goal tag.
// "bulk_upload" -> "Bulk Upload".
func Goal(tag string) string {
	return humanize(tag)
}

// humanize converts snake_case or kebab-case codes to Title Case words.
func humanize(code string) string {
	code = strings.ReplaceAll(code, "-", "_")
	parts := strings.Split(code, "_")
	out := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, strings.ToUpper(p[:1])+p[1:])
	}
	return strings.Join(out, " ")
}
