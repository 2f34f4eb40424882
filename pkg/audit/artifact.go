package audit

// Severity grades how damaging a confirmed finding is. String-typed so
// it reads well in JSON, YAML and reports.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for threshold comparisons. Unknown values
// rank below none.
func (s Severity) Rank() int {
	switch s {
	case SeverityNone:
		return 1
	case SeverityLow:
		return 2
	case SeverityMedium:
		return 3
	case SeverityHigh:
		return 4
	case SeverityCritical:
		return 5
	default:
		return 0
	}
}

// Evidence is one structured finding about the audited artifact.
// Collectors create it; nothing mutates it afterwards. Confidence is
// the collector's deterministic certainty in [0,1]. Severity grades a
// Found finding's damage; leave it zero for neutral observations.
type Evidence struct {
	Goal       string   `json:"goal"`
	Found      bool     `json:"found"`
	Location   string   `json:"location,omitempty"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale"`
	Content    string   `json:"content,omitempty"`
	Severity   Severity `json:"severity,omitempty"`
}

// Role is one reviewer seat on the bench. The set is closed: adding a
// seat means a new constant plus a weight-table row, never subclassing.
type Role string

const (
	RoleProsecutor Role = "prosecutor"
	RoleDefense    Role = "defense"
	RoleTechLead   Role = "techlead"
)

// Score domain for opinions and verdicts.
const (
	ScoreMin = 1
	ScoreMax = 5
)

// ValidScore reports whether n is inside the discrete score domain.
func ValidScore(n int) bool { return n >= ScoreMin && n <= ScoreMax }

// Opinion is one role's scored judgement of one rubric criterion.
// Recovered marks payloads rebuilt by the fallback extractor or
// substituted after generator exhaustion.
type Opinion struct {
	CriterionID string   `json:"criterion_id"`
	Role        Role     `json:"role"`
	Score       int      `json:"score"`
	Rationale   string   `json:"rationale"`
	Cited       []string `json:"cited,omitempty"`
	Recovered   bool     `json:"recovered,omitempty"`
}

// Dissent documents an unresolved disagreement on one criterion:
// the pre-clamp score spread, the roles at the extremes, and the rule
// that overruled them when one fired.
type Dissent struct {
	Spread    int    `json:"spread"`
	Outliers  []Role `json:"outliers"`
	Overruled string `json:"overruled,omitempty"`
	Summary   string `json:"summary"`
}

// Verdict is the synthesized outcome for one criterion. Final is
// meaningful only when Unscored is false.
type Verdict struct {
	CriterionID    string    `json:"criterion_id"`
	Final          int       `json:"final"`
	Unscored       bool      `json:"unscored,omitempty"`
	UnscoredReason string    `json:"unscored_reason,omitempty"`
	Opinions       []Opinion `json:"opinions"`
	Dissent        *Dissent  `json:"dissent,omitempty"`
}

// Report is the set-once final result of a run: the full verdict
// sequence in rubric order. The fault list travels separately on the
// state so conflicts recorded after sealing are never lost.
type Report struct {
	Verdicts []Verdict `json:"verdicts"`
}
