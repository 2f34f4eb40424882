package rubric

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// LoadFromPath reads a rubric file (YAML or JSON) and returns the parsed Rubric.
// Format is detected by extension (.yaml/.yml → YAML, .json → JSON) or by content (first non-whitespace char).
func LoadFromPath(path string) (*Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rubric: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses a rubric from bytes. ext is the file extension (e.g. ".json", ".yaml") for format hint; empty = detect from content.
func Load(data []byte, ext string) (*Rubric, error) {
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == ".yaml" {
		var r Rubric
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse rubric yaml: %w", err)
		}
		return &r, nil
	}
	if ext == ".json" {
		var r Rubric
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse rubric json: %w", err)
		}
		return &r, nil
	}
	// Detect: try JSON first (starts with {), else YAML
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var r Rubric
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse rubric json: %w", err)
		}
		return &r, nil
	}
	var r Rubric
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rubric yaml: %w", err)
	}
	return &r, nil
}
