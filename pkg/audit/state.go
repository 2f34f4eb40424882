package audit

import (
	"reflect"
	"sort"
)

// State is one immutable snapshot of an audit run. Fields are exported
// for serialization; treat them as read-only. Every change goes through
// Merge, which returns a snapshot with fresh containers, so callers
// never share backing arrays with their inputs.
//
// Merge policies per field:
//   - Evidence: keyed-union. Union of keys, concatenation where a key
//     collides. Each collector owns exactly one key, so group merges
//     commute.
//   - Opinions, Faults: append. Arrival order is kept for audit;
//     SortedOpinions/SortedFaults are the externally observable orders.
//   - Report: set-once. A second differing set records a merge fault
//     and the first value is kept.
type State struct {
	RepoRef  string                `json:"repo_ref,omitempty"`
	DocRef   string                `json:"doc_ref,omitempty"`
	Evidence map[string][]Evidence `json:"evidence,omitempty"`
	Opinions []Opinion             `json:"opinions,omitempty"`
	Faults   []Fault               `json:"faults,omitempty"`
	Report   *Report               `json:"report,omitempty"`
}

// Delta is one node's contribution to the run state. Zero value is the
// empty contribution.
type Delta struct {
	Evidence map[string][]Evidence
	Opinions []Opinion
	Faults   []Fault
	Report   *Report
}

// FaultDelta builds the executor's failure contribution: exactly one
// fault, nothing else.
func FaultDelta(node string, class FaultClass, msg string) Delta {
	return Delta{Faults: []Fault{{Node: node, Class: class, Message: msg}}}
}

// NewState seeds a run snapshot from static configuration with empty
// containers.
func NewState(repoRef, docRef string) State {
	return State{
		RepoRef:  repoRef,
		DocRef:   docRef,
		Evidence: map[string][]Evidence{},
	}
}

// Merge folds one delta into the snapshot and returns the result. Merge
// is associative and commutative for the keyed-union and append fields,
// so folding a fan-out group's deltas in any completion order yields
// the same canonical state.
func (s State) Merge(d Delta) State {
	out := State{
		RepoRef:  s.RepoRef,
		DocRef:   s.DocRef,
		Evidence: make(map[string][]Evidence, len(s.Evidence)+len(d.Evidence)),
		Report:   s.Report,
	}
	for k, v := range s.Evidence {
		out.Evidence[k] = append([]Evidence(nil), v...)
	}
	for k, v := range d.Evidence {
		out.Evidence[k] = append(out.Evidence[k], v...)
	}

	out.Opinions = make([]Opinion, 0, len(s.Opinions)+len(d.Opinions))
	out.Opinions = append(append(out.Opinions, s.Opinions...), d.Opinions...)

	out.Faults = make([]Fault, 0, len(s.Faults)+len(d.Faults))
	out.Faults = append(append(out.Faults, s.Faults...), d.Faults...)

	if d.Report != nil {
		switch {
		case out.Report == nil:
			out.Report = d.Report
		case reflect.DeepEqual(out.Report, d.Report):
			// Idempotent re-set; first value stands.
		default:
			out.Faults = append(out.Faults, Fault{
				Node:    "merge",
				Class:   FaultMerge,
				Message: "final report already set; keeping first value",
			})
		}
	}
	return out
}

// SortedOpinions returns opinions in the externally observable order:
// criterion id, then role. The raw Opinions slice keeps arrival order
// for audit.
func (s State) SortedOpinions() []Opinion {
	out := append([]Opinion(nil), s.Opinions...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CriterionID != out[j].CriterionID {
			return out[i].CriterionID < out[j].CriterionID
		}
		return out[i].Role < out[j].Role
	})
	return out
}

// SortedFaults returns faults ordered by node, class, message.
func (s State) SortedFaults() []Fault {
	out := append([]Fault(nil), s.Faults...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Node != out[j].Node {
			return out[i].Node < out[j].Node
		}
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// EvidenceKeys returns the collector keys in sorted order.
func (s State) EvidenceKeys() []string {
	keys := make([]string, 0, len(s.Evidence))
	for k := range s.Evidence {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AllEvidence returns every evidence item grouped by sorted collector
// key, the deterministic flattening used by judges and reports.
func (s State) AllEvidence() []Evidence {
	var out []Evidence
	for _, k := range s.EvidenceKeys() {
		out = append(out, s.Evidence[k]...)
	}
	return out
}

// FaultsOf returns the recorded faults of one class, in arrival order.
func (s State) FaultsOf(class FaultClass) []Fault {
	var out []Fault
	for _, f := range s.Faults {
		if f.Class == class {
			out = append(out, f)
		}
	}
	return out
}
