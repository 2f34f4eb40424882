package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// execute runs the root command in-process with the given args and
// returns everything written to stdout/stderr. Flag values stick
// across Execute calls, so every run starts from the defaults.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"--log-level=error"}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags() {
	cmds := append([]*cobra.Command{rootCmd}, rootCmd.Commands()...)
	for _, c := range cmds {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			}
		})
	}
}

// writeSubmission lays out a small local repo and its accompanying
// document. The dir is not a git repository, so exactly the history
// probe records a fault; everything else runs offline.
func writeSubmission(t *testing.T) (repoDir, docPath string) {
	t.Helper()
	repoDir = t.TempDir()
	files := map[string]string{
		"state.go":  "package state\n\ntype State struct{}\n\nfunc merge() {}\n",
		"graph.go":  "package state\n\nfunc wire(g *G) { g.AddNode(nil); g.AddEdge(1, 2) }\n",
		"retry.go":  "package state\n\nconst maxRetries = 3\n",
		"README.md": "# Widget\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(repoDir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	docPath = filepath.Join(t.TempDir(), "report.md")
	doc := `The widget pipeline merges partial state snapshots.

# Architecture

State lives in state.go and the graph wiring in graph.go.

# Error Handling

Transient failures retry per retry.go.
`
	if err := os.WriteFile(docPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return repoDir, docPath
}

func TestRubricCommand_Default(t *testing.T) {
	out, err := execute(t, "rubric")
	if err != nil {
		t.Fatalf("rubric: %v\n%s", err, out)
	}
	for _, want := range []string{"git_forensic_analysis", "Category Weights", "Rubric OK: 5 criteria"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRubricCommand_CustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rubric.yaml")
	body := `criteria:
  - id: commit_hygiene
    name: Commit Hygiene
    category: process
    goals: [commit_history]
weights:
  process:
    prosecutor: 1
    defense: 1
    techlead: 1
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "rubric", "--file", path)
	if err != nil {
		t.Fatalf("rubric --file: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Commit Hygiene") || !strings.Contains(out, "Rubric OK: 1 criteria") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRubricCommand_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rubric.yaml")
	body := `criteria:
  - id: commit_hygiene
    category: process
weights: {}
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "rubric", "--file", path); err == nil {
		t.Fatal("expected validation error for unweighted category")
	}
}

func TestAuditCommand_EndToEnd(t *testing.T) {
	repoDir, docPath := writeSubmission(t)
	dbPath := filepath.Join(t.TempDir(), "tribunal.db")
	outPath := filepath.Join(t.TempDir(), "report.md")

	out, err := execute(t, "audit", repoDir,
		"--doc", docPath, "--db", dbPath, "-o", outPath)
	if err != nil {
		t.Fatalf("audit: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Report written to") || !strings.Contains(out, "scored") {
		t.Errorf("unexpected audit output:\n%s", out)
	}
	written, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(written), "Audit Verdict") {
		t.Errorf("report file missing verdict header:\n%s", written)
	}

	// The stored run re-renders without re-auditing.
	out, err = execute(t, "report", "--db", dbPath)
	if err != nil {
		t.Fatalf("report: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Audit Verdict") {
		t.Errorf("stored report missing verdict header:\n%s", out)
	}

	out, err = execute(t, "report", "--db", dbPath, "--format", "text")
	if err != nil {
		t.Fatalf("report --format text: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Audit Verdict") {
		t.Errorf("text report missing verdict header:\n%s", out)
	}

	out, err = execute(t, "report", "--db", dbPath, "--list")
	if err != nil {
		t.Fatalf("report --list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Stored Audit Runs") || !strings.Contains(out, "complete") {
		t.Errorf("unexpected list output:\n%s", out)
	}
}

func TestAuditCommand_MissingRepo(t *testing.T) {
	_, err := execute(t, "audit", "--doc", "report.md", "--db", "")
	if err == nil || !strings.Contains(err.Error(), "repository is required") {
		t.Fatalf("expected missing-repo error, got %v", err)
	}
}

func TestAuditCommand_UnknownGenerator(t *testing.T) {
	_, err := execute(t, "audit", "./repo", "--doc", "report.md", "--db", "", "--generator", "gpt-9")
	if err == nil || !strings.Contains(err.Error(), "unknown generator") {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestReportCommand_NoRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	_, err := execute(t, "report", "--db", dbPath)
	if err == nil || !strings.Contains(err.Error(), "no stored runs") {
		t.Fatalf("expected no-runs error, got %v", err)
	}
}
