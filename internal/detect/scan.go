package detect

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dpopsuev/tribunal/pkg/audit"
)

// maxScanBytes caps how much of one file the structure scan reads.
const maxScanBytes = 512 * 1024

var sourceExtensions = map[string]bool{
	".go": true, ".py": true, ".ts": true, ".js": true,
	".rs": true, ".java": true, ".rb": true, ".cs": true,
}

// structureMarkers are the language-agnostic signals the rubric's
// architecture criteria look for. Matching is lowercase substring;
// this is a heuristic grep, not an AST proof, and the confidence says
// so.
var structureMarkers = []struct {
	goal     string
	patterns []string
}{
	{"state_definition", []string{"stategraph", "agentstate", "typeddict", "type state struct", "basemodel", "dataclass"}},
	{"merge_policy", []string{"operator.ior", "operator.add", "reducer", "annotated[", ") merge(", "commutative"}},
	{"graph_wiring", []string{"add_node", "add_edge", "addnode", "addedge", "add_conditional_edges", "stategraph", "newengine"}},
	{"fan_out", []string{"fan-out", "fan_out", "errgroup", "asyncio.gather", "threadpoolexecutor", "waitgroup", "send("}},
	{"retry_logic", []string{"retry", "backoff", "max_retries", "maxattempts", "max_attempts"}},
	{"fallback_path", []string{"fallback", "degraded", "recover(", "except ", "structural failure"}},
}

const (
	confMarkerFound  = 0.9
	confMarkerAbsent = 0.6
)

type markerHit struct {
	file    string
	excerpt string
}

// structureEvidence greps the working tree for each structural marker
// set and reports one evidence item per goal.
func structureEvidence(dir string) []audit.Evidence {
	hits := scanTree(dir)
	ev := make([]audit.Evidence, 0, len(structureMarkers))
	for _, m := range structureMarkers {
		item := audit.Evidence{Goal: m.goal, Confidence: confMarkerAbsent,
			Rationale: fmt.Sprintf("no %s markers in any scanned source file", m.goal)}
		if hit, ok := hits[m.goal]; ok {
			item.Found = true
			item.Confidence = confMarkerFound
			item.Location = hit.file
			item.Content = hit.excerpt
			item.Rationale = fmt.Sprintf("marker matched in %s; substring scan, not an AST proof", hit.file)
		}
		ev = append(ev, item)
	}
	return ev
}

// scanTree walks the source files under dir and records the first file
// matching each marker set.
func scanTree(dir string) map[string]markerHit {
	hits := make(map[string]markerHit, len(structureMarkers))
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" || d.Name() == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if len(hits) == len(structureMarkers) {
			return filepath.SkipAll
		}

		content, err := readCapped(path, maxScanBytes)
		if err != nil {
			return nil
		}
		lower := strings.ToLower(content)
		rel, _ := filepath.Rel(dir, path)
		for _, m := range structureMarkers {
			if _, done := hits[m.goal]; done {
				continue
			}
			for _, p := range m.patterns {
				if idx := strings.Index(lower, p); idx >= 0 {
					hits[m.goal] = markerHit{file: rel, excerpt: excerptAround(content, idx)}
					break
				}
			}
		}
		return nil
	})
	return hits
}

// fileManifest lists every file under dir relative to it, sorted,
// skipping VCS and dependency directories.
func fileManifest(dir string) ([]string, error) {
	var manifest []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" || d.Name() == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		manifest = append(manifest, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(manifest)
	return manifest, nil
}

func readCapped(path string, limit int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// excerptAround returns the line containing byte offset idx.
func excerptAround(content string, idx int) string {
	start := strings.LastIndexByte(content[:idx], '\n') + 1
	end := strings.IndexByte(content[idx:], '\n')
	if end < 0 {
		end = len(content)
	} else {
		end += idx
	}
	return strings.TrimSpace(content[start:end])
}
