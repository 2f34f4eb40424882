package detect

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dpopsuev/tribunal/pkg/audit"
)

// CrossRef is the second-pass examiner: it checks every file path the
// document claims against what actually exists in the cloned
// repository. It runs after the detectives so the sandbox clone is in
// place.
type CrossRef struct {
	DocRef  string
	RepoDir string

	fetch func(ctx context.Context, url string) (string, error)
}

// NewCrossRef builds the examiner for one document and one
// materialized repository directory.
func NewCrossRef(docRef, repoDir string) *CrossRef {
	return &CrossRef{DocRef: docRef, RepoDir: repoDir, fetch: FetchRendered}
}

// ID is the collector key this examiner's evidence files under.
func (x *CrossRef) ID() string { return "path_examiner" }

// Collect re-reads the document, extracts its path claims, and checks
// each against the repository manifest. A missing repository directory
// is an error: without the clone there is nothing to check claims
// against.
func (x *CrossRef) Collect(ctx context.Context) ([]audit.Evidence, error) {
	text, err := loadDocument(ctx, x.DocRef, x.fetch)
	if err != nil {
		return nil, err
	}
	manifest, err := fileManifest(x.RepoDir)
	if err != nil {
		return nil, fmt.Errorf("walk repository %s: %w", x.RepoDir, err)
	}
	claimed := extractPaths(text)
	verified, missing := crossReference(claimed, manifest)
	return []audit.Evidence{hallucinationEvidence(claimed, verified, missing)}, nil
}

// crossReference splits claims into verified and missing. A claim
// counts as verified when it matches a manifest entry exactly, or when
// a bare filename claim matches the basename of any real file.
func crossReference(claimed, manifest []string) (verified, missing []string) {
	real := make(map[string]bool, len(manifest))
	bases := make(map[string]bool, len(manifest))
	for _, p := range manifest {
		real[p] = true
		bases[path.Base(p)] = true
	}
	for _, c := range claimed {
		norm := strings.TrimPrefix(strings.ReplaceAll(c, "\\", "/"), "./")
		switch {
		case real[norm]:
			verified = append(verified, c)
		case !strings.Contains(norm, "/") && bases[norm]:
			verified = append(verified, c)
		default:
			missing = append(missing, c)
		}
	}
	return verified, missing
}

func hallucinationEvidence(claimed, verified, missing []string) audit.Evidence {
	if len(claimed) == 0 {
		return audit.Evidence{
			Goal:       "hallucinated_paths",
			Confidence: 0.5,
			Rationale:  "document claims no concrete paths; nothing to verify either way",
		}
	}
	accuracy := float64(len(verified)) / float64(len(claimed))
	if len(missing) == 0 {
		return audit.Evidence{
			Goal:       "hallucinated_paths",
			Confidence: 0.9,
			Rationale:  fmt.Sprintf("all %d claimed path(s) exist in the repository (accuracy 100%%)", len(claimed)),
		}
	}
	preview := missing
	if len(preview) > 8 {
		preview = preview[:8]
	}
	return audit.Evidence{
		Goal:       "hallucinated_paths",
		Found:      true,
		Severity:   audit.SeverityHigh,
		Confidence: 0.9,
		Content:    strings.Join(missing, "\n"),
		Rationale: fmt.Sprintf("%d of %d claimed path(s) do not exist in the repository (accuracy %.0f%%): %s",
			len(missing), len(claimed), accuracy*100, strings.Join(preview, ", ")),
	}
}
