package detect

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Commit is one parsed git log entry.
type Commit struct {
	Hash    string
	Subject string
	Time    time.Time
}

// HistoryReport is the forensic summary of a repository's commit
// history.
type HistoryReport struct {
	Commits     []Commit
	Total       int
	Phases      []string
	Progression bool
	Bulk        bool
	Span        time.Duration
	Narrative   string
}

// bulkWindow is the span under which a multi-commit history counts as a
// single bulk upload rather than iterative work.
const bulkWindow = 5 * time.Minute

var phaseKeywords = []struct {
	name     string
	keywords []string
}{
	{"setup", []string{"init", "setup", "environment", "scaffold", "structure", "config"}},
	{"tooling", []string{"tool", "parse", "git", "clone", "doc", "ingest", "fetch"}},
	{"orchestration", []string{"graph", "node", "state", "engine", "detective", "judge", "agent", "pipeline"}},
}

// parseGitLog parses `git log --reverse --format=%H|||%s|||%ct` output.
// Malformed lines are skipped.
func parseGitLog(out string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.Split(line, "|||")
		if len(parts) != 3 {
			continue
		}
		secs, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
		if err != nil {
			continue
		}
		commits = append(commits, Commit{
			Hash:    strings.TrimSpace(parts[0]),
			Subject: strings.TrimSpace(parts[1]),
			Time:    time.Unix(secs, 0).UTC(),
		})
	}
	return commits
}

// analyzeHistory runs the forensic checks over a parsed history:
// phase progression in the commit messages and the bulk-upload
// timestamp signature.
func analyzeHistory(commits []Commit) HistoryReport {
	r := HistoryReport{Commits: commits, Total: len(commits)}

	for _, phase := range phaseKeywords {
		for _, c := range commits {
			if keywordMatch(c.Subject, phase.keywords) > 0 {
				r.Phases = append(r.Phases, phase.name)
				break
			}
		}
	}
	r.Progression = len(r.Phases) >= 2

	if r.Total > 1 {
		earliest, latest := commits[0].Time, commits[0].Time
		for _, c := range commits[1:] {
			if c.Time.Before(earliest) {
				earliest = c.Time
			}
			if c.Time.After(latest) {
				latest = c.Time
			}
		}
		r.Span = latest.Sub(earliest)
		r.Bulk = r.Total > 3 && r.Span < bulkWindow
	}

	switch {
	case r.Total == 0:
		r.Narrative = "no commits found; repository may be empty"
	case r.Total == 1:
		r.Narrative = fmt.Sprintf("single commit %q; no development progression visible", commits[0].Subject)
	case r.Bulk:
		r.Narrative = fmt.Sprintf("%d commits all within %s; bulk upload pattern, not iterative development", r.Total, bulkWindow)
	case r.Progression:
		r.Narrative = fmt.Sprintf("%d commits with clear progression across %s phases", r.Total, strings.Join(r.Phases, ", "))
	default:
		r.Narrative = fmt.Sprintf("%d commits but the progression narrative is weak; phases not delineated in messages", r.Total)
	}
	return r
}

// historyConfidence grades how much the commit history can be trusted
// as evidence: more commits and visible progression raise it, the bulk
// signature lowers it.
func historyConfidence(r HistoryReport) float64 {
	if r.Total == 0 {
		return 0
	}
	score := 0.4
	switch {
	case r.Total >= 10:
		score += 0.3
	case r.Total >= 5:
		score += 0.2
	case r.Total >= 2:
		score += 0.1
	}
	if r.Progression {
		score += 0.2
	}
	if r.Bulk {
		score -= 0.2
	}
	return round2(math.Min(math.Max(score, 0), 1))
}

// keywordMatch counts how many keywords appear in the text,
// case-insensitively.
func keywordMatch(text string, keywords []string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			count++
		}
	}
	return count
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
