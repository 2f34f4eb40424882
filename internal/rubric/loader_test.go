package rubric

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/dpopsuev/tribunal/pkg/audit"
)

func testdataPath(name string) string {
	_, f, _, _ := runtime.Caller(0)
	dir := filepath.Dir(f)
	return filepath.Join(dir, "testdata", name)
}

func TestLoadFromPath_YAML(t *testing.T) {
	r, err := LoadFromPath(testdataPath("rubric.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if len(r.Criteria) != 2 {
		t.Fatalf("want 2 criteria, got %+v", r)
	}
	if r.Criteria[0].ID != "commit_hygiene" || r.Criteria[0].Name != "Commit Hygiene" {
		t.Errorf("first criterion: got %+v", r.Criteria[0])
	}
	if len(r.Criteria[0].Goals) != 2 || r.Criteria[0].Goals[0] != "commit_history" {
		t.Errorf("first criterion goals: got %+v", r.Criteria[0].Goals)
	}
	if r.Weights["architecture"][audit.RoleTechLead] != 2 {
		t.Errorf("architecture techlead weight: got %v", r.Weights["architecture"][audit.RoleTechLead])
	}
}

func TestLoadFromPath_JSON(t *testing.T) {
	r, err := LoadFromPath(testdataPath("rubric.json"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if len(r.Criteria) != 2 {
		t.Fatalf("want 2 criteria, got %+v", r)
	}
	if r.Criteria[1].ID != "doc_accuracy" || r.Criteria[1].Category != "document" {
		t.Errorf("second criterion: got %+v", r.Criteria[1])
	}
	if r.Weights["document"][audit.RoleProsecutor] != 2 {
		t.Errorf("document prosecutor weight: got %v", r.Weights["document"][audit.RoleProsecutor])
	}
}

func TestLoad_DetectJSON(t *testing.T) {
	data := []byte(`{"criteria":[{"id":"a","category":"process"}],"weights":{"process":{"prosecutor":1,"defense":1,"techlead":1}}}`)
	r, err := Load(data, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(r.Criteria) != 1 || r.Criteria[0].ID != "a" {
		t.Errorf("got %+v", r)
	}
}

func TestLoad_DetectYAML(t *testing.T) {
	data := []byte("criteria:\n  - id: x\n    category: process\n")
	r, err := Load(data, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(r.Criteria) != 1 || r.Criteria[0].ID != "x" {
		t.Errorf("got %+v", r)
	}
}

func TestLoad_BadJSON(t *testing.T) {
	if _, err := Load([]byte(`{"criteria": [`), ".json"); err == nil {
		t.Error("expected error for malformed json")
	}
}

func TestLoaded_ValidatesLikeDefault(t *testing.T) {
	r, err := LoadFromPath(testdataPath("rubric.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if err := r.Validate([]audit.Role{audit.RoleProsecutor, audit.RoleDefense, audit.RoleTechLead}); err != nil {
		t.Errorf("fixture rubric should validate: %v", err)
	}
}
