package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dpopsuev/tribunal/internal/report"
	"github.com/dpopsuev/tribunal/internal/store"
	"github.com/dpopsuev/tribunal/internal/trial"
)

var auditFlags struct {
	repo      string
	doc       string
	generator string
	workers   int
	dbPath    string
	output    string
	format    string
	timeout   time.Duration
}

var auditCmd = &cobra.Command{
	Use:   "audit [repo-ref]",
	Short: "Run a full audit of a repository and its document",
	Long: `Audit a submission: collect evidence from the repository and its
accompanying document, have the bench score every rubric criterion,
and print the synthesized verdict report.

Usage:
  tribunal audit https://github.com/acme/widget --doc report.md
  tribunal audit ./checkout --doc https://acme.dev/report.html

The repository may be a git URL (cloned into a sandbox) or a local
directory (read in place). The document may be a local file or an
http(s) URL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAudit,
}

func init() {
	f := auditCmd.Flags()
	f.StringVar(&auditFlags.repo, "repo", "", "Repository under audit (git URL or local path)")
	f.StringVar(&auditFlags.doc, "doc", "", "Accompanying document (path or URL, required)")
	f.StringVar(&auditFlags.generator, "generator", "stub", "Opinion generator: stub (deterministic heuristic)")
	f.IntVar(&auditFlags.workers, "workers", 4, "Concurrent nodes per stage")
	f.StringVar(&auditFlags.dbPath, "db", store.DefaultDBPath, "Run store DB path (empty disables persistence)")
	f.StringVarP(&auditFlags.output, "output", "o", "", "Write the report to a file instead of stdout")
	f.StringVar(&auditFlags.format, "format", "markdown", "Report format: markdown or text")
	f.DurationVar(&auditFlags.timeout, "timeout", 10*time.Minute, "Global run budget")

	_ = auditCmd.MarkFlagRequired("doc")
}

func runAudit(cmd *cobra.Command, args []string) error {
	repo := auditFlags.repo
	if repo == "" && len(args) > 0 {
		repo = args[0]
	}
	if repo == "" {
		return fmt.Errorf("a repository is required\n\nUsage: tribunal audit <repo-ref> --doc <doc-ref>")
	}
	if auditFlags.format != "markdown" && auditFlags.format != "text" {
		return fmt.Errorf("unknown format %q (markdown, text)", auditFlags.format)
	}

	gen, err := resolveGenerator(auditFlags.generator)
	if err != nil {
		return err
	}
	st, err := openStore(auditFlags.dbPath)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	cfg := trial.DefaultRunConfig(repo, auditFlags.doc)
	if auditFlags.workers > 0 {
		cfg.Workers = auditFlags.workers
	}
	if auditFlags.timeout > 0 {
		cfg.RunTimeout = auditFlags.timeout
	}

	res, runErr := trial.NewRunner(cfg, gen, st).Run(cmd.Context())
	if res == nil {
		return runErr
	}

	rendered := res.Report
	if auditFlags.format == "text" {
		rendered = report.Text(report.Params{
			RunID:    res.RunID,
			Finished: res.Finished,
			Duration: res.Duration,
		}, cfg.Rubric, res.State)
	}

	out := cmd.OutOrStdout()
	if auditFlags.output == "" {
		fmt.Fprintln(out, rendered)
	} else {
		if err := os.WriteFile(auditFlags.output, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(out, "Report written to %s\n", auditFlags.output)
	}

	if res.Unscored {
		fmt.Fprintf(out, "Run %s finished unscored with %d fault(s)\n", res.RunID, len(res.State.Faults))
	} else {
		fmt.Fprintf(out, "Run %s scored %.1f/5 with %d fault(s)\n", res.RunID, res.Overall, len(res.State.Faults))
	}
	return runErr
}
