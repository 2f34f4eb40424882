package court

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dpopsuev/tribunal/internal/display"
	"github.com/dpopsuev/tribunal/internal/rubric"
	"github.com/dpopsuev/tribunal/pkg/audit"
)

// Config tunes the chief justice. The defaults encode the charter:
// facts beat opinions, and loud disagreement is recorded, not averaged
// away.
type Config struct {
	// OverrideCeiling caps every opinion score for a criterion once a
	// confirmed finding implicates it.
	OverrideCeiling int
	// OverrideSeverity is the minimum severity that arms the override.
	OverrideSeverity audit.Severity
	// OverrideMinConfidence is the minimum collector confidence for a
	// finding to count as confirmed.
	OverrideMinConfidence float64
	// DissentThreshold is the pre-clamp score spread above which a
	// dissent is recorded on the verdict.
	DissentThreshold int
}

// DefaultConfig returns the charter defaults.
func DefaultConfig() Config {
	return Config{
		OverrideCeiling:       3,
		OverrideSeverity:      audit.SeverityHigh,
		OverrideMinConfidence: 0.8,
		DissentThreshold:      2,
	}
}

// Synthesizer reduces bench opinions to verdicts under a rubric.
type Synthesizer struct {
	cfg    Config
	rubric *rubric.Rubric
}

// NewSynthesizer validates the rubric against the bench and the config
// against the score domain. A synthesizer that constructs will never
// fail mid-deliberation.
func NewSynthesizer(r *rubric.Rubric, cfg Config) (*Synthesizer, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil rubric", audit.ErrConfiguration)
	}
	if err := r.Validate(Roles()); err != nil {
		return nil, err
	}
	if !audit.ValidScore(cfg.OverrideCeiling) {
		return nil, fmt.Errorf("%w: override ceiling %d outside score domain", audit.ErrConfiguration, cfg.OverrideCeiling)
	}
	if cfg.DissentThreshold < 0 {
		return nil, fmt.Errorf("%w: negative dissent threshold %d", audit.ErrConfiguration, cfg.DissentThreshold)
	}
	if cfg.OverrideMinConfidence < 0 || cfg.OverrideMinConfidence > 1 {
		return nil, fmt.Errorf("%w: override confidence %v outside [0,1]", audit.ErrConfiguration, cfg.OverrideMinConfidence)
	}
	return &Synthesizer{cfg: cfg, rubric: r}, nil
}

// Deliberate produces one verdict per rubric criterion, in rubric
// order. The same snapshot always yields byte-identical verdicts.
func (s *Synthesizer) Deliberate(st audit.State) []audit.Verdict {
	sorted := st.SortedOpinions()
	pool := st.AllEvidence()
	verdicts := make([]audit.Verdict, 0, len(s.rubric.Criteria))
	for _, c := range s.rubric.Criteria {
		verdicts = append(verdicts, s.verdict(c, benchOpinions(sorted, c.ID), relevant(pool, c)))
	}
	return verdicts
}

// benchOpinions extracts the criterion's opinions, one per role. The
// input is already sorted, so the first opinion seen per role is the
// earliest merged.
func benchOpinions(sorted []audit.Opinion, criterionID string) []audit.Opinion {
	var out []audit.Opinion
	seen := map[audit.Role]bool{}
	for _, op := range sorted {
		if op.CriterionID != criterionID || seen[op.Role] {
			continue
		}
		seen[op.Role] = true
		out = append(out, op)
	}
	return out
}

// relevant narrows the evidence pool to the criterion's declared goals.
func relevant(pool []audit.Evidence, c rubric.Criterion) []audit.Evidence {
	return c.Relevant(pool)
}

// confirmedFinding returns the first finding that arms the fact
// override: found, confident, and at or above the override severity.
func (s *Synthesizer) confirmedFinding(evidence []audit.Evidence) (audit.Evidence, bool) {
	for _, ev := range evidence {
		if ev.Found && ev.Confidence >= s.cfg.OverrideMinConfidence && ev.Severity.Rank() >= s.cfg.OverrideSeverity.Rank() {
			return ev, true
		}
	}
	return audit.Evidence{}, false
}

func (s *Synthesizer) verdict(c rubric.Criterion, ops []audit.Opinion, evidence []audit.Evidence) audit.Verdict {
	v := audit.Verdict{CriterionID: c.ID, Opinions: ops}
	if len(ops) == 0 {
		v.Unscored = true
		v.UnscoredReason = "no opinions delivered"
		return v
	}

	finding, override := s.confirmedFinding(evidence)

	// Dissent works on the raw scores: the override must not hide that
	// the bench disagreed.
	minScore, maxScore := ops[0].Score, ops[0].Score
	for _, op := range ops[1:] {
		if op.Score < minScore {
			minScore = op.Score
		}
		if op.Score > maxScore {
			maxScore = op.Score
		}
	}
	spread := maxScore - minScore

	// Absent roles contribute nothing; normalizing over the present
	// roles redistributes their weight proportionally.
	weights := s.rubric.WeightsFor(c.Category)
	var sum, total float64
	for _, op := range ops {
		w := weights[op.Role]
		score := op.Score
		if override && score > s.cfg.OverrideCeiling {
			score = s.cfg.OverrideCeiling
		}
		sum += w * float64(score)
		total += w
	}
	if total == 0 {
		v.Unscored = true
		v.UnscoredReason = "present roles carry zero weight"
		return v
	}

	v.Final = roundHalfUp(sum / total)
	if v.Final < audit.ScoreMin {
		v.Final = audit.ScoreMin
	} else if v.Final > audit.ScoreMax {
		v.Final = audit.ScoreMax
	}

	if spread > s.cfg.DissentThreshold {
		v.Dissent = s.dissent(c, ops, minScore, maxScore, override, finding)
	}
	return v
}

func (s *Synthesizer) dissent(c rubric.Criterion, ops []audit.Opinion, minScore, maxScore int, override bool, finding audit.Evidence) *audit.Dissent {
	var outliers []audit.Role
	for _, op := range ops {
		if op.Score == minScore || op.Score == maxScore {
			outliers = append(outliers, op.Role)
		}
	}
	sort.Slice(outliers, func(i, j int) bool { return outliers[i] < outliers[j] })

	names := make([]string, len(outliers))
	for i, r := range outliers {
		names[i] = display.Role(string(r))
	}
	d := &audit.Dissent{
		Spread:   maxScore - minScore,
		Outliers: outliers,
		Summary: fmt.Sprintf("bench split %d-%d on %s; extremes held by %s",
			minScore, maxScore, c.DisplayName(), strings.Join(names, ", ")),
	}
	if override {
		d.Overruled = fmt.Sprintf("fact override capped scores at %d: %s (%s severity, confidence %.2f)",
			s.cfg.OverrideCeiling, finding.Rationale, display.Severity(string(finding.Severity)), finding.Confidence)
	}
	return d
}

// roundHalfUp rounds to the nearest integer with ties away from zero,
// so a bench mean of 3.5 becomes 4, not 3.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
