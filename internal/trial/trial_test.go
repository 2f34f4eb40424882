package trial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dpopsuev/tribunal/internal/chambers"
	"github.com/dpopsuev/tribunal/internal/detect"
	"github.com/dpopsuev/tribunal/internal/rubric"
	"github.com/dpopsuev/tribunal/internal/store"
	"github.com/dpopsuev/tribunal/pkg/audit"
)

// scriptedCollector stands in for a detective.
type scriptedCollector struct {
	id    string
	items []audit.Evidence
	err   error
}

func (c scriptedCollector) ID() string { return c.id }

func (c scriptedCollector) Collect(context.Context) ([]audit.Evidence, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.items, nil
}

// benchRubric is a one-criterion rubric with equal voice for every
// seat.
func benchRubric() *rubric.Rubric {
	return &rubric.Rubric{
		Criteria: []rubric.Criterion{{
			ID:       "git_forensic_analysis",
			Name:     "Git Forensic Analysis",
			Category: "process",
		}},
		Weights: map[string]rubric.Weights{
			"process": {audit.RoleProsecutor: 1, audit.RoleDefense: 1, audit.RoleTechLead: 1},
		},
	}
}

func repoEvidence() []audit.Evidence {
	return []audit.Evidence{
		{Goal: "commit_history", Found: true, Confidence: 0.8, Rationale: "41 commits over six days"},
		{Goal: "commit_progression", Found: true, Confidence: 0.85, Rationale: "phases appear in build order"},
		{Goal: "bulk_upload", Found: false, Confidence: 0.95, Rationale: "timestamps spread over a working week"},
	}
}

// splitBench scores 5/3/4 depending on the seat.
func splitBench() chambers.Generator {
	scores := map[audit.Role]int{
		audit.RoleProsecutor: 5,
		audit.RoleDefense:    3,
		audit.RoleTechLead:   4,
	}
	return chambers.GeneratorFunc(func(_ context.Context, b chambers.Brief) (string, error) {
		return fmt.Sprintf(`{"score": %d, "rationale": "argued from %d exhibits"}`, scores[b.Persona.Role], len(b.Evidence)), nil
	})
}

func TestBuild_RejectsBadConfiguration(t *testing.T) {
	cfg := DefaultRunConfig("repo", "doc")

	cfg.Rubric = nil
	if _, err := Build(cfg, nil, nil, splitBench(), nil); !errors.Is(err, audit.ErrConfiguration) {
		t.Fatalf("nil rubric: err = %v, want ErrConfiguration", err)
	}

	cfg.Rubric = benchRubric()
	if _, err := Build(cfg, nil, nil, nil, nil); !errors.Is(err, audit.ErrConfiguration) {
		t.Fatalf("nil generator: err = %v, want ErrConfiguration", err)
	}
}

// A failing collector must not cost the run: its fault is recorded, the
// surviving evidence is deliberated, and the split bench resolves to a
// single verdict.
func TestRun_SplitBenchWithFailingCollector(t *testing.T) {
	cfg := DefaultRunConfig("github.com/acme/widget", "widget/README.md")
	cfg.Rubric = benchRubric()

	trace := &audit.TraceCollector{}
	engine, err := Build(cfg,
		[]Collector{
			scriptedCollector{id: "repo", items: repoEvidence()},
			scriptedCollector{id: "doc", err: errors.New("document unreachable")},
		},
		nil, splitBench(), trace)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	final, err := engine.Run(context.Background(), audit.NewState(cfg.RepoRef, cfg.DocRef))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(final.Faults) != 1 {
		t.Fatalf("faults = %v, want exactly one", final.Faults)
	}
	f := final.Faults[0]
	if f.Node != "doc" || f.Class != audit.FaultCollection || !strings.Contains(f.Message, "document unreachable") {
		t.Errorf("fault = %+v, want collection fault from doc", f)
	}

	if got := len(final.Evidence["repo"]); got != 3 {
		t.Errorf("evidence under repo = %d, want 3", got)
	}
	if len(final.Opinions) != 3 {
		t.Fatalf("opinions = %d, want one per seat", len(final.Opinions))
	}

	if final.Report == nil || len(final.Report.Verdicts) != 1 {
		t.Fatalf("report = %+v, want one sealed verdict", final.Report)
	}
	v := final.Report.Verdicts[0]
	if v.CriterionID != "git_forensic_analysis" || v.Unscored {
		t.Fatalf("verdict = %+v, want scored git_forensic_analysis", v)
	}
	if v.Final != 4 {
		t.Errorf("final = %d, want 4 (mean of 5, 3, 4)", v.Final)
	}
	if v.Dissent != nil {
		t.Errorf("dissent = %+v, want none for a spread of 2", v.Dissent)
	}

	enters := trace.EventsOfType(audit.EventStageEnter)
	want := []audit.StageID{StageInvestigate, StageCorrelate, StageDeliberate, StageSynthesize}
	if len(enters) != len(want) {
		t.Fatalf("stages entered = %d, want %d", len(enters), len(want))
	}
	for i, e := range enters {
		if e.Stage != want[i] {
			t.Errorf("stage %d = %q, want %q", i, e.Stage, want[i])
		}
	}
}

// When every collector fails the router stops the run before the bench
// convenes.
func TestRun_NoLeadsStopsBeforeDeliberation(t *testing.T) {
	cfg := DefaultRunConfig("github.com/acme/widget", "widget/README.md")
	cfg.Rubric = benchRubric()

	trace := &audit.TraceCollector{}
	engine, err := Build(cfg,
		[]Collector{
			scriptedCollector{id: "repo", err: errors.New("clone failed")},
			scriptedCollector{id: "doc", err: errors.New("document unreachable")},
		},
		nil, splitBench(), trace)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	final, err := engine.Run(context.Background(), audit.NewState(cfg.RepoRef, cfg.DocRef))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(final.Faults) != 2 {
		t.Errorf("faults = %v, want both collectors recorded", final.Faults)
	}
	if len(final.Opinions) != 0 || final.Report != nil {
		t.Errorf("opinions = %d, report = %+v; want neither", len(final.Opinions), final.Report)
	}
	if enters := trace.EventsOfType(audit.EventStageEnter); len(enters) != 1 {
		t.Errorf("stages entered = %d, want investigate only", len(enters))
	}

	trans := trace.EventsOfType(audit.EventTransition)
	if len(trans) != 1 || trans[0].Next != audit.StageTerminal {
		t.Fatalf("transitions = %+v, want one to terminal", trans)
	}
	if !strings.Contains(trans[0].Explanation, "nothing for the bench") {
		t.Errorf("explanation = %q", trans[0].Explanation)
	}
}

// An exhausted generator degrades every seat instead of sinking the
// run: neutral opinions, one generation fault per seat, and a sealed
// report.
func TestRun_ExhaustedGeneratorDegradesBench(t *testing.T) {
	cfg := DefaultRunConfig("github.com/acme/widget", "widget/README.md")
	cfg.Rubric = benchRubric()

	gen := chambers.GeneratorFunc(func(context.Context, chambers.Brief) (string, error) {
		return "", errors.New("model offline")
	})
	engine, err := Build(cfg, []Collector{scriptedCollector{id: "repo", items: repoEvidence()}}, nil, gen, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	final, err := engine.Run(context.Background(), audit.NewState(cfg.RepoRef, cfg.DocRef))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	gf := final.FaultsOf(audit.FaultGeneration)
	if len(gf) != 3 {
		t.Fatalf("generation faults = %v, want one per seat", gf)
	}
	if len(final.Opinions) != 3 {
		t.Fatalf("opinions = %d, want one per seat", len(final.Opinions))
	}
	for _, op := range final.Opinions {
		if !op.Recovered || op.Score != 3 {
			t.Errorf("opinion %+v, want recovered neutral score", op)
		}
	}

	if final.Report == nil || len(final.Report.Verdicts) != 1 {
		t.Fatalf("report = %+v, want one verdict", final.Report)
	}
	if v := final.Report.Verdicts[0]; v.Final != 3 || v.Unscored {
		t.Errorf("verdict = %+v, want degraded 3", v)
	}
}

func TestRunner_PersistsLifecycle(t *testing.T) {
	st := store.NewMemStore()
	cfg := DefaultRunConfig("github.com/acme/widget", "widget/README.md")
	cfg.Rubric = benchRubric()

	r := NewRunner(cfg, splitBench(), st)
	r.collect = func(*detect.Sandbox, string) ([]Collector, []Collector) {
		return []Collector{scriptedCollector{id: "repo", items: repoEvidence()}}, nil
	}

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.RunID) != 36 {
		t.Errorf("run id = %q, want a uuid", res.RunID)
	}
	if res.Overall != 4.0 || res.Unscored {
		t.Errorf("overall = %v unscored = %v, want 4.0 scored", res.Overall, res.Unscored)
	}
	if !strings.Contains(res.Report, "Audit Verdict") {
		t.Errorf("report missing header:\n%s", res.Report)
	}

	run, err := st.GetRun(res.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: run = %v, err = %v", run, err)
	}
	if run.Status != store.StatusComplete || run.Overall != 4.0 || run.Faults != 0 {
		t.Errorf("stored run = %+v, want complete at 4.0 with no faults", run)
	}
	if run.Report == "" || run.StartedAt == "" || run.FinishedAt == "" {
		t.Errorf("stored run missing report or timestamps: %+v", run)
	}

	var snap audit.State
	if err := json.Unmarshal(run.State, &snap); err != nil {
		t.Fatalf("state payload: %v", err)
	}
	if snap.Report == nil || len(snap.Evidence["repo"]) != 3 {
		t.Errorf("state payload lost content: %+v", snap)
	}

	rows, err := st.ListVerdicts(res.RunID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListVerdicts: rows = %v, err = %v", rows, err)
	}
	if rows[0].CriterionID != "git_forensic_analysis" || rows[0].Final != 4 || rows[0].Dissent {
		t.Errorf("verdict row = %+v", rows[0])
	}
}

func TestRunner_AbortRecordsFailure(t *testing.T) {
	st := store.NewMemStore()
	cfg := DefaultRunConfig("github.com/acme/widget", "widget/README.md")
	cfg.Rubric = benchRubric()
	cfg.RunTimeout = 5 * time.Millisecond

	gen := chambers.GeneratorFunc(func(ctx context.Context, _ chambers.Brief) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	r := NewRunner(cfg, gen, st)
	r.collect = func(*detect.Sandbox, string) ([]Collector, []Collector) {
		return []Collector{scriptedCollector{id: "repo", items: repoEvidence()}}, nil
	}

	res, err := r.Run(context.Background())
	if !errors.Is(err, audit.ErrRunAborted) {
		t.Fatalf("err = %v, want ErrRunAborted", err)
	}
	if res == nil || res.State.Report != nil {
		t.Fatalf("result = %+v, want partial state without a report", res)
	}
	if !strings.Contains(res.Report, "No verdicts were reached") {
		t.Errorf("report missing degraded notice:\n%s", res.Report)
	}

	run, err := st.GetRun(res.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: run = %v, err = %v", run, err)
	}
	if run.Status != store.StatusFailed {
		t.Errorf("status = %q, want failed", run.Status)
	}
}
