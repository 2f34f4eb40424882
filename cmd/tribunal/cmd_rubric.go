package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dpopsuev/tribunal/internal/court"
	"github.com/dpopsuev/tribunal/internal/display"
	"github.com/dpopsuev/tribunal/internal/format"
	"github.com/dpopsuev/tribunal/internal/rubric"
)

var rubricFlags struct {
	file string
}

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Show and validate the scoring rubric",
	Long: `Print the criteria and per-category role weights of the rubric the
bench scores against. With --file, load a custom rubric (YAML or
JSON) and validate it against the bench before printing.`,
	RunE: runRubric,
}

func init() {
	f := rubricCmd.Flags()
	f.StringVar(&rubricFlags.file, "file", "", "Custom rubric file (YAML or JSON; default: built-in)")
}

func runRubric(cmd *cobra.Command, _ []string) error {
	r := rubric.Default()
	if rubricFlags.file != "" {
		loaded, err := rubric.LoadFromPath(rubricFlags.file)
		if err != nil {
			return err
		}
		r = loaded
	}
	if err := r.Validate(court.Roles()); err != nil {
		return fmt.Errorf("rubric invalid: %w", err)
	}

	out := cmd.OutOrStdout()

	crit := format.NewTable(format.ASCII)
	crit.Title("Criteria")
	crit.Header("ID", "Name", "Category", "Goals")
	for _, c := range r.Criteria {
		crit.Row(c.ID, c.Name, c.Category, format.Truncate(goalList(c.Goals), 48))
	}
	fmt.Fprintln(out, crit.String())

	roles := court.Roles()
	header := []string{"Category"}
	for _, role := range roles {
		header = append(header, display.Role(string(role)))
	}
	weights := format.NewTable(format.ASCII)
	weights.Title("Category Weights")
	weights.Header(header...)
	for _, cat := range sortedCategories(r) {
		row := []any{cat}
		for _, role := range roles {
			row = append(row, fmt.Sprintf("%.2f", r.WeightsFor(cat)[role]))
		}
		weights.Row(row...)
	}
	fmt.Fprintln(out, weights.String())

	fmt.Fprintf(out, "Rubric OK: %d criteria across %d categories\n",
		len(r.Criteria), len(r.Weights))
	return nil
}

// goalList humanizes the goal tags of a criterion. An empty list means
// the criterion weighs the whole evidence pool.
func goalList(goals []string) string {
	if len(goals) == 0 {
		return "all evidence"
	}
	names := make([]string, 0, len(goals))
	for _, g := range goals {
		names = append(names, display.Goal(g))
	}
	return strings.Join(names, ", ")
}

func sortedCategories(r *rubric.Rubric) []string {
	cats := make([]string, 0, len(r.Weights))
	for cat := range r.Weights {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}
