package chambers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dpopsuev/tribunal/pkg/audit"
)

// StubGenerator drafts deterministic opinions without an external
// service. The score tracks the share of found evidence, shaded by the
// seat's stance; confirmed high-severity findings drag it down.
// Payloads go out as JSON so offline runs exercise the whole parse
// path.
type StubGenerator struct{}

func (StubGenerator) Generate(_ context.Context, b Brief) (string, error) {
	found, total := 0, 0
	worst := audit.SeverityNone
	for _, ev := range b.Evidence {
		total++
		if ev.Found {
			found++
			if ev.Severity.Rank() > worst.Rank() {
				worst = ev.Severity
			}
		}
	}

	score := 3
	if total > 0 {
		switch ratio := float64(found) / float64(total); {
		case ratio >= 0.8:
			score = 5
		case ratio >= 0.6:
			score = 4
		case ratio >= 0.4:
			score = 3
		case ratio >= 0.2:
			score = 2
		default:
			score = 1
		}
	}
	if worst.Rank() >= audit.SeverityHigh.Rank() {
		score -= 2
	}
	switch b.Persona.Role {
	case audit.RoleProsecutor:
		score--
	case audit.RoleDefense:
		score++
	}
	if score < audit.ScoreMin {
		score = audit.ScoreMin
	}
	if score > audit.ScoreMax {
		score = audit.ScoreMax
	}

	cited := make([]string, 0, 2)
	for _, ev := range b.Evidence {
		if ev.Found && len(cited) < 2 {
			cited = append(cited, ev.Goal)
		}
	}

	out, err := json.Marshal(opinionWire{
		Score:     score,
		Rationale: fmt.Sprintf("%s finds %d of %d goals evidenced for %s", b.Persona.Title, found, total, b.Criterion.ID),
		Cited:     cited,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
