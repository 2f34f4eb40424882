package trial

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dpopsuev/tribunal/internal/chambers"
	"github.com/dpopsuev/tribunal/internal/detect"
	"github.com/dpopsuev/tribunal/internal/logging"
	"github.com/dpopsuev/tribunal/internal/report"
	"github.com/dpopsuev/tribunal/internal/store"
	"github.com/dpopsuev/tribunal/pkg/audit"
)

// Result is the outcome of one audit run. On an aborted run it carries
// the state merged so far; that state is valid and readable.
type Result struct {
	RunID    string
	State    audit.State
	Report   string  // rendered Markdown
	Overall  float64 // mean of scored verdicts; meaningless when Unscored
	Unscored bool
	Finished time.Time
	Duration time.Duration
}

// Runner executes complete audits: it builds the graph around the real
// detectives, drives the engine, renders the report, and checkpoints
// the run in the store.
type Runner struct {
	cfg   RunConfig
	gen   chambers.Generator
	store store.Store // nil disables checkpointing
	log   *slog.Logger

	collect func(sb *detect.Sandbox, repoDir string) (investigators, correlators []Collector)
}

// NewRunner wires a runner for one submission. The generator drafts the
// bench's opinions; st may be nil.
func NewRunner(cfg RunConfig, gen chambers.Generator, st store.Store) *Runner {
	r := &Runner{cfg: cfg, gen: gen, store: st, log: logging.New("trial")}
	r.collect = func(sb *detect.Sandbox, repoDir string) ([]Collector, []Collector) {
		return []Collector{
				detect.NewRepoDetective(cfg.RepoRef, sb),
				detect.NewDocDetective(cfg.DocRef),
			}, []Collector{
				detect.NewCrossRef(cfg.DocRef, repoDir),
			}
	}
	return r
}

// Run executes the full audit and returns its result. A global timeout
// or cancellation returns the partial result together with
// audit.ErrRunAborted; every other failure mode is recorded on the
// state as a fault and the run completes.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	log := logging.WithRun(r.log, runID)
	started := time.Now()

	sb, err := detect.NewSandbox()
	if err != nil {
		return nil, err
	}
	defer sb.Cleanup()

	// A local directory ref is read in place; anything else lands in
	// the sandbox clone, where the cross-referencer will find it.
	repoDir := r.cfg.RepoRef
	if info, statErr := os.Stat(repoDir); statErr != nil || !info.IsDir() {
		repoDir = sb.RepoDir()
	}
	investigators, correlators := r.collect(sb, repoDir)

	engine, err := Build(r.cfg, investigators, correlators, r.gen, &audit.LogObserver{Logger: log})
	if err != nil {
		return nil, err
	}

	r.checkpoint(log, &store.Run{
		ID:        runID,
		RepoRef:   r.cfg.RepoRef,
		DocRef:    r.cfg.DocRef,
		Status:    store.StatusRunning,
		StartedAt: started.UTC().Format(time.RFC3339),
	}, nil)

	log.Info("audit started", "repo", r.cfg.RepoRef, "doc", r.cfg.DocRef)
	final, runErr := engine.Run(ctx, audit.NewState(r.cfg.RepoRef, r.cfg.DocRef))
	finished := time.Now()

	res := &Result{
		RunID:    runID,
		State:    final,
		Finished: finished,
		Duration: finished.Sub(started),
	}
	if final.Report != nil {
		var scored bool
		res.Overall, scored = report.Overall(final.Report.Verdicts)
		res.Unscored = !scored
	} else {
		res.Unscored = true
	}
	res.Report = report.Markdown(report.Params{
		RunID:    runID,
		Finished: finished,
		Duration: res.Duration,
	}, r.cfg.Rubric, final)

	run := &store.Run{
		ID:         runID,
		RepoRef:    r.cfg.RepoRef,
		DocRef:     r.cfg.DocRef,
		Status:     store.StatusComplete,
		Overall:    res.Overall,
		Unscored:   res.Unscored,
		Faults:     len(final.Faults),
		Report:     res.Report,
		StartedAt:  started.UTC().Format(time.RFC3339),
		FinishedAt: finished.UTC().Format(time.RFC3339),
	}
	if runErr != nil {
		run.Status = store.StatusFailed
	}
	if payload, mErr := json.Marshal(final); mErr == nil {
		run.State = payload
	} else {
		log.Error("state marshal failed", "error", mErr)
	}
	r.checkpoint(log, run, verdictRows(runID, final))

	if runErr != nil {
		log.Error("audit aborted", "error", runErr, "faults", len(final.Faults))
		return res, runErr
	}
	log.Info("audit complete",
		"overall", res.Overall,
		"unscored", res.Unscored,
		"faults", len(final.Faults),
		"duration", res.Duration.Round(time.Millisecond))
	return res, nil
}

// checkpoint persists the run row. A failed checkpoint must not sink a
// finished audit, so failures are logged and the run carries on.
func (r *Runner) checkpoint(log *slog.Logger, run *store.Run, rows []store.VerdictRow) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveRun(run, rows); err != nil {
		log.Error("checkpoint failed", "error", err)
	}
}

func verdictRows(runID string, st audit.State) []store.VerdictRow {
	if st.Report == nil {
		return nil
	}
	rows := make([]store.VerdictRow, 0, len(st.Report.Verdicts))
	for _, v := range st.Report.Verdicts {
		rows = append(rows, store.VerdictRow{
			RunID:       runID,
			CriterionID: v.CriterionID,
			Final:       v.Final,
			Unscored:    v.Unscored,
			Dissent:     v.Dissent != nil,
		})
	}
	return rows
}
