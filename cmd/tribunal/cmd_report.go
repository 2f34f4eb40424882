package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dpopsuev/tribunal/internal/format"
	"github.com/dpopsuev/tribunal/internal/report"
	"github.com/dpopsuev/tribunal/internal/rubric"
	"github.com/dpopsuev/tribunal/internal/store"
	"github.com/dpopsuev/tribunal/pkg/audit"
)

var reportFlags struct {
	runID  string
	dbPath string
	format string
	list   bool
	limit  int
}

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Render a stored audit run",
	Long: `Re-render the report of a stored run, newest first when no run id is
given. With --list, show a table of stored runs instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.runID, "run", "", "Run ID (default: most recent run)")
	f.StringVar(&reportFlags.dbPath, "db", store.DefaultDBPath, "Run store DB path")
	f.StringVar(&reportFlags.format, "format", "markdown", "Report format: markdown or text")
	f.BoolVar(&reportFlags.list, "list", false, "List stored runs instead of rendering one")
	f.IntVar(&reportFlags.limit, "limit", 20, "Max runs to list with --list")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportFlags.format != "markdown" && reportFlags.format != "text" {
		return fmt.Errorf("unknown format %q (markdown, text)", reportFlags.format)
	}
	st, err := openStore(reportFlags.dbPath)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("a run store is required (--db)")
	}
	defer st.Close()

	if reportFlags.list {
		return listRuns(cmd, st)
	}

	id := reportFlags.runID
	if id == "" && len(args) > 0 {
		id = args[0]
	}
	run, err := resolveRun(st, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if reportFlags.format == "markdown" {
		if run.Report == "" {
			return fmt.Errorf("run %s has no rendered report (status %s)", run.ID, run.Status)
		}
		fmt.Fprintln(out, run.Report)
		return nil
	}

	// Text re-renders from the merged state snapshot.
	if len(run.State) == 0 {
		return fmt.Errorf("run %s has no recorded state (status %s)", run.ID, run.Status)
	}
	var state audit.State
	if err := json.Unmarshal(run.State, &state); err != nil {
		return fmt.Errorf("decode state of run %s: %w", run.ID, err)
	}
	finished, _ := time.Parse(time.RFC3339, run.FinishedAt)
	started, _ := time.Parse(time.RFC3339, run.StartedAt)
	fmt.Fprintln(out, report.Text(report.Params{
		RunID:    run.ID,
		Finished: finished,
		Duration: finished.Sub(started),
	}, rubric.Default(), state))
	return nil
}

// resolveRun loads the run with the given id, or the most recent run
// when id is empty.
func resolveRun(st store.Store, id string) (*store.Run, error) {
	if id == "" {
		runs, err := st.ListRuns(1)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no stored runs; run 'tribunal audit' first")
		}
		return st.GetRun(runs[0].ID)
	}
	run, err := st.GetRun(id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("no run with id %s", id)
	}
	return run, nil
}

func listRuns(cmd *cobra.Command, st store.Store) error {
	runs, err := st.ListRuns(reportFlags.limit)
	if err != nil {
		return err
	}

	mode := format.ASCII
	if reportFlags.format == "markdown" {
		mode = format.Markdown
	}
	tbl := format.NewTable(mode)
	tbl.Title("Stored Audit Runs")
	tbl.Header("Run", "Status", "Overall", "Faults", "Started", "Repository")
	for _, r := range runs {
		overall := "-"
		if r.Status == store.StatusComplete && !r.Unscored {
			overall = fmt.Sprintf("%.1f", r.Overall)
		}
		tbl.Row(r.ID, r.Status, overall, r.Faults, r.StartedAt, format.Truncate(r.RepoRef, 40))
	}
	tbl.Footer("", "", "", "", "", fmt.Sprintf("%d run(s)", len(runs)))
	fmt.Fprintln(cmd.OutOrStdout(), tbl.String())
	return nil
}
