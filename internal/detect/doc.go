package detect

import (
	"context"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/dpopsuev/tribunal/pkg/audit"
)

// forensicConcepts are the architecture concepts an honest design
// document should engage with, each with the phrasings that count as a
// mention.
var forensicConcepts = []struct {
	key      string
	keywords []string
}{
	{"dialectical_synthesis", []string{"dialectical", "thesis antithesis", "debate", "conflicting opinions", "adversarial review"}},
	{"fan_in_fan_out", []string{"fan-in", "fan-out", "fan in", "fan out", "parallel branch", "synchronization node", "aggregator"}},
	{"metacognition", []string{"metacognition", "metacognitive", "thinking about thinking", "self-evaluation", "evaluating its own"}},
	{"state_synchronization", []string{"state synchronization", "state sync", "reducer", "commutative", "parallel write", "race condition", "merge policy"}},
}

// explanatoryMarkers signal that a passage explains rather than
// name-drops.
var explanatoryMarkers = []string{"because", "therefore", "so that", "which means", "ensures", "guarantees", "in order to"}

// section is one heading-delimited slice of the document. Index 0 is
// the opening section, the analog of an executive summary.
type section struct {
	index   int
	heading string
	body    string
}

// DocDetective analyzes the submitted document: concept coverage per
// forensic concept, and the file paths the document claims exist.
type DocDetective struct {
	Ref string

	fetch func(ctx context.Context, url string) (string, error)
}

// NewDocDetective builds a detective for one document reference,
// either a local file or an http(s) URL rendered through a headless
// browser.
func NewDocDetective(ref string) *DocDetective {
	return &DocDetective{Ref: ref, fetch: FetchRendered}
}

// ID is the collector key this detective's evidence files under.
func (d *DocDetective) ID() string { return "doc_analyst" }

// Collect loads the document and returns its evidence. An unreachable
// or unreadable document is an error for the caller to record.
func (d *DocDetective) Collect(ctx context.Context) ([]audit.Evidence, error) {
	text, err := loadDocument(ctx, d.Ref, d.fetch)
	if err != nil {
		return nil, err
	}
	sections := splitSections(text)

	ev := make([]audit.Evidence, 0, len(forensicConcepts)+1)
	for _, c := range forensicConcepts {
		ev = append(ev, conceptEvidence(d.Ref, sections, c.key, c.keywords))
	}
	ev = append(ev, pathClaimEvidence(d.Ref, text))
	return ev, nil
}

// loadDocument reads a local file or fetches a rendered URL.
func loadDocument(ctx context.Context, ref string, fetch func(context.Context, string) (string, error)) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		if fetch == nil {
			fetch = FetchRendered
		}
		return fetch(ctx, ref)
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}

// splitSections cuts the document at markdown headings. Text before the
// first heading joins the first section, so every document has at least
// one.
func splitSections(text string) []section {
	var sections []section
	current := section{index: 0, heading: "(opening)"}
	flush := func() {
		if strings.TrimSpace(current.body) != "" || current.index == 0 {
			sections = append(sections, current)
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "#") {
			if current.index > 0 || strings.TrimSpace(current.body) != "" {
				flush()
				current = section{index: len(sections), body: ""}
			}
			current.heading = strings.TrimSpace(strings.TrimLeft(line, "# "))
			continue
		}
		current.body += line + "\n"
	}
	flush()
	return sections
}

// conceptEvidence grades how the document engages one forensic
// concept: not at all, opening section only, mentioned, or
// substantively explained.
func conceptEvidence(ref string, sections []section, key string, keywords []string) audit.Evidence {
	type hit struct {
		sec   section
		count int
	}
	var hits []hit
	introOnly := true
	substantive := false
	for _, sec := range sections {
		text := sec.heading + "\n" + sec.body
		n := keywordMatch(text, keywords)
		if n == 0 {
			continue
		}
		hits = append(hits, hit{sec: sec, count: n})
		if sec.index > 0 {
			introOnly = false
		}
		if keywordMatch(text, explanatoryMarkers) > 0 {
			substantive = true
		}
	}

	ev := audit.Evidence{Goal: "concept_coverage", Location: "concept:" + key}
	if len(hits) == 0 {
		ev.Rationale = fmt.Sprintf("no mention of %s anywhere in the document", key)
		return ev
	}

	ev.Found = true
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		return hits[i].sec.index < hits[j].sec.index
	})
	best := hits[0]
	ev.Content = excerpt(best.sec.body, 240)

	if introOnly {
		ev.Confidence = 0.2
		ev.Rationale = fmt.Sprintf("%s mentioned only in the opening section; the body never engages it", key)
		ev.Severity = audit.SeverityLow
		return ev
	}

	conf := 0.3
	if substantive {
		conf += 0.35
	}
	conf += math.Min(float64(best.count)/float64(len(keywords)), 1) * 0.2
	if len(hits) >= 3 {
		conf += 0.15
	} else if len(hits) >= 2 {
		conf += 0.07
	}
	ev.Confidence = round2(math.Min(conf, 1))
	ev.Rationale = fmt.Sprintf("%s discussed in %d section(s); best passage under %q with %d keyword hit(s); substantive explanation: %v",
		key, len(hits), best.sec.heading, best.count, substantive)
	return ev
}

var pathPatterns = []*regexp.Regexp{
	regexp.MustCompile("`?((?:cmd|internal|pkg|src|docs|examples|test|tests)/[A-Za-z0-9_./-]+\\.[A-Za-z0-9]+)`?"),
	regexp.MustCompile("`?([A-Za-z0-9_-]+\\.(?:go|py|md|json|yaml|yml|toml|txt|mod|lock))`?"),
	regexp.MustCompile("`?(\\.env[A-Za-z0-9._-]*)`?"),
}

// extractPaths pulls every file path the document claims, deduplicated
// and sorted.
func extractPaths(text string) []string {
	found := map[string]bool{}
	for _, pat := range pathPatterns {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			p := strings.Trim(m[1], "` ")
			if len(p) > 2 {
				found[p] = true
			}
		}
	}
	out := make([]string, 0, len(found))
	for p := range found {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// pathClaimEvidence records the path claims for the cross-reference
// examiner downstream.
func pathClaimEvidence(ref, text string) audit.Evidence {
	claimed := extractPaths(text)
	if len(claimed) == 0 {
		return audit.Evidence{
			Goal:       "path_references",
			Location:   ref,
			Confidence: 1.0,
			Rationale:  "no concrete file paths claimed in the document",
		}
	}
	preview := claimed
	if len(preview) > 8 {
		preview = preview[:8]
	}
	return audit.Evidence{
		Goal:       "path_references",
		Found:      true,
		Location:   ref,
		Confidence: 1.0,
		Content:    strings.Join(claimed, "\n"),
		Rationale:  fmt.Sprintf("regex extraction found %d claimed path(s): %s", len(claimed), strings.Join(preview, ", ")),
	}
}

func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
