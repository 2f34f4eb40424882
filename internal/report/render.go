// Package report renders a finished audit into Markdown for filing or
// plain text for the terminal. Rendering is pure: the same state and
// params always produce the same bytes.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dpopsuev/tribunal/internal/display"
	"github.com/dpopsuev/tribunal/internal/format"
	"github.com/dpopsuev/tribunal/internal/rubric"
	"github.com/dpopsuev/tribunal/pkg/audit"
)

// Params carries the run metadata that lives outside the merged state.
type Params struct {
	RunID    string
	Finished time.Time
	Duration time.Duration
}

// Markdown renders the full report as GitHub-flavoured Markdown.
func Markdown(p Params, r *rubric.Rubric, st audit.State) string {
	return render(p, r, st, format.Markdown)
}

// Text renders the full report as fixed-width terminal output.
func Text(p Params, r *rubric.Rubric, st audit.State) string {
	return render(p, r, st, format.ASCII)
}

func render(p Params, r *rubric.Rubric, st audit.State, mode format.Mode) string {
	var b strings.Builder

	writeHeader(&b, p, st, mode)
	if st.Report == nil || len(st.Report.Verdicts) == 0 {
		b.WriteString("No verdicts were reached; see the fault list below.\n\n")
	} else {
		writeVerdicts(&b, r, st.Report.Verdicts, mode)
		writeDeliberations(&b, st.Report.Verdicts, mode)
	}
	writeEvidence(&b, st, mode)
	writeFaults(&b, st, mode)

	return b.String()
}

func writeHeader(b *strings.Builder, p Params, st audit.State, mode format.Mode) {
	title := "Audit Verdict"
	if p.RunID != "" {
		title += " — " + shortID(p.RunID)
	}
	if mode == format.Markdown {
		b.WriteString("# " + title + "\n\n")
	} else {
		b.WriteString(title + "\n")
	}

	tbl := format.NewTable(mode)
	tbl.Header("Field", "Value")
	if st.RepoRef != "" {
		tbl.Row("Repository", st.RepoRef)
	}
	if st.DocRef != "" {
		tbl.Row("Document", st.DocRef)
	}
	if !p.Finished.IsZero() {
		tbl.Row("Completed", p.Finished.UTC().Format("2006-01-02 15:04 UTC"))
	}
	if p.Duration > 0 {
		tbl.Row("Duration", format.FmtDuration(p.Duration))
	}
	tbl.Row("Faults", len(st.Faults))
	b.WriteString(tbl.String())
	b.WriteString("\n\n")
}

func writeVerdicts(b *strings.Builder, r *rubric.Rubric, verdicts []audit.Verdict, mode format.Mode) {
	section(b, mode, "Verdicts")

	tbl := format.NewTable(mode)
	tbl.Header("Criterion", "Category", "Score", "Dissent", "Note")
	tbl.Columns(
		format.ColumnConfig{Number: 3, Align: format.AlignRight},
		format.ColumnConfig{Number: 5, MaxWidth: 60},
	)

	for _, v := range verdicts {
		category := "-"
		if r != nil {
			if c := r.CriterionByID(v.CriterionID); c != nil {
				category = c.Category
			}
		}
		note := ""
		switch {
		case v.Unscored:
			note = v.UnscoredReason
		case v.Dissent != nil && v.Dissent.Overruled != "":
			note = v.Dissent.Overruled
		case v.Dissent != nil:
			note = v.Dissent.Summary
		}
		tbl.Row(
			display.Criterion(v.CriterionID),
			category,
			format.FmtScore(v.Final, audit.ScoreMax, v.Unscored),
			format.BoolMark(v.Dissent != nil),
			format.Truncate(note, 60),
		)
	}

	if mean, ok := Overall(verdicts); ok {
		tbl.Footer("OVERALL", "", fmt.Sprintf("%.1f/%d", mean, audit.ScoreMax), "", "")
	} else {
		tbl.Footer("OVERALL", "", "-", "", "")
	}
	b.WriteString(tbl.String())
	b.WriteString("\n\n")
}

func writeDeliberations(b *strings.Builder, verdicts []audit.Verdict, mode format.Mode) {
	section(b, mode, "Deliberations")

	for _, v := range verdicts {
		subsection(b, mode, display.CriterionWithID(v.CriterionID))

		if len(v.Opinions) == 0 {
			b.WriteString("No opinions reached the bench.\n\n")
			continue
		}

		tbl := format.NewTable(mode)
		tbl.Header("Role", "Score", "Recovered", "Rationale")
		tbl.Columns(
			format.ColumnConfig{Number: 2, Align: format.AlignRight},
			format.ColumnConfig{Number: 4, MaxWidth: 70},
		)
		for _, op := range v.Opinions {
			tbl.Row(
				display.Role(string(op.Role)),
				format.FmtScore(op.Score, audit.ScoreMax, false),
				format.BoolMark(op.Recovered),
				format.Truncate(op.Rationale, 70),
			)
		}
		b.WriteString(tbl.String())
		b.WriteString("\n\n")

		if v.Unscored {
			b.WriteString(emphasis(mode, "Unscored") + " " + v.UnscoredReason + "\n\n")
		}
		if v.Dissent != nil {
			b.WriteString(emphasis(mode, "Dissent") + " " + v.Dissent.Summary + "\n\n")
			if v.Dissent.Overruled != "" {
				b.WriteString(emphasis(mode, "Overruled") + " " + v.Dissent.Overruled + "\n\n")
			}
		}
	}
}

func writeEvidence(b *strings.Builder, st audit.State, mode format.Mode) {
	section(b, mode, "Evidence")

	keys := st.EvidenceKeys()
	if len(keys) == 0 {
		b.WriteString("No evidence was collected.\n\n")
		return
	}

	for _, key := range keys {
		items := st.Evidence[key]
		if mode == format.Markdown {
			subsection(b, mode, key)
		}

		tbl := format.NewTable(mode)
		if mode == format.ASCII {
			tbl.Title("Evidence: " + key)
		}
		tbl.Header("Goal", "Found", "Confidence", "Severity", "Rationale")
		tbl.Columns(
			format.ColumnConfig{Number: 3, Align: format.AlignRight},
			format.ColumnConfig{Number: 5, MaxWidth: 60},
		)
		for _, e := range items {
			severity := "-"
			if e.Severity != "" {
				severity = display.Severity(string(e.Severity))
			}
			tbl.Row(
				display.Goal(e.Goal),
				format.BoolMark(e.Found),
				format.FmtConfidence(e.Confidence),
				severity,
				format.Truncate(e.Rationale, 60),
			)
		}
		b.WriteString(tbl.String())
		b.WriteString("\n\n")
	}
}

func writeFaults(b *strings.Builder, st audit.State, mode format.Mode) {
	section(b, mode, "Faults")

	faults := st.SortedFaults()
	if len(faults) == 0 {
		b.WriteString("None recorded.\n")
		return
	}
	for _, f := range faults {
		b.WriteString(fmt.Sprintf("- %s (%s)\n", f.String(), display.FaultClass(string(f.Class))))
	}
	b.WriteString("\n")
}

// --- helpers ---

func section(b *strings.Builder, mode format.Mode, title string) {
	if mode == format.Markdown {
		b.WriteString("## " + title + "\n\n")
		return
	}
	b.WriteString("--- " + title + " ---\n")
}

func subsection(b *strings.Builder, mode format.Mode, title string) {
	if mode == format.Markdown {
		b.WriteString("### " + title + "\n\n")
		return
	}
	b.WriteString(title + "\n")
}

func emphasis(mode format.Mode, label string) string {
	if mode == format.Markdown {
		return "**" + label + ":**"
	}
	return label + ":"
}

// Overall is the unweighted mean of the scored verdicts. The second
// return is false when every verdict is unscored.
func Overall(verdicts []audit.Verdict) (float64, bool) {
	sum, n := 0, 0
	for _, v := range verdicts {
		if v.Unscored {
			continue
		}
		sum += v.Final
		n++
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
