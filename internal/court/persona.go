// Package court holds the bench and the synthesis rules: the closed set
// of reviewer personas that argue over the evidence, and the chief
// justice that reduces their opinions to one verdict per criterion.
package court

import (
	"strings"

	"github.com/dpopsuev/tribunal/pkg/audit"
)

// Persona is a named bench identity: the role it fills, the adversarial
// stance it argues from, and the preamble handed to its opinion
// generator.
type Persona struct {
	Role        audit.Role
	Title       string
	Stance      []string
	Preamble    string
	Description string
}

// Bench returns the full three-seat bench in deliberation order.
func Bench() []Persona {
	return []Persona{
		{
			Role:        audit.RoleProsecutor,
			Title:       "The Prosecutor",
			Stance:      []string{"skeptical", "forensic", "fabrication-hunting"},
			Preamble:    "You are the Prosecutor: a hostile reviewer. Assume the work is fabricated until the evidence proves otherwise. Cite the evidence that convicts.",
			Description: "Hostile reviewer, hunts fabrication",
		},
		{
			Role:        audit.RoleDefense,
			Title:       "The Defense",
			Stance:      []string{"charitable", "context-seeking", "intent-first"},
			Preamble:    "You are the Defense: a charitable reviewer. Read the work as its author intended and credit every genuine effort. Cite the evidence that vindicates.",
			Description: "Charitable reviewer, credits intent",
		},
		{
			Role:        audit.RoleTechLead,
			Title:       "The Tech Lead",
			Stance:      []string{"pragmatic", "neutral", "maintainability-first"},
			Preamble:    "You are the Tech Lead: a pragmatic reviewer. Ignore both malice and charity; judge whether this work would survive production and a second maintainer.",
			Description: "Pragmatic reviewer, judges maintainability",
		},
	}
}

// Roles returns the bench's role codes in deliberation order.
func Roles() []audit.Role {
	bench := Bench()
	out := make([]audit.Role, len(bench))
	for i, p := range bench {
		out[i] = p.Role
	}
	return out
}

// ByRole looks up a persona by role code (case-insensitive).
func ByRole(role string) (Persona, bool) {
	lower := strings.ToLower(role)
	for _, p := range Bench() {
		if string(p.Role) == lower {
			return p, true
		}
	}
	return Persona{}, false
}
