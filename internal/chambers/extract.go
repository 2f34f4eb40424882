package chambers

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/dpopsuev/tribunal/internal/format"
	"github.com/dpopsuev/tribunal/pkg/audit"
)

// opinionWire mirrors the JSON contract generators are asked to emit.
type opinionWire struct {
	Score     int      `json:"score"`
	Rationale string   `json:"rationale"`
	Cited     []string `json:"cited_evidence"`
}

// parseOpinion walks the recovery ladder: strict JSON, fence-stripped
// JSON, the first balanced object in the text, then a bare score scan.
// The last two mark the opinion Recovered. Caller stamps criterion and
// role; generators never relabel their brief.
func parseOpinion(raw string) (audit.Opinion, bool) {
	data := []byte(raw)
	if op, ok := unmarshalWire(data, false); ok {
		return op, true
	}
	if op, ok := unmarshalWire(cleanJSON(data), false); ok {
		return op, true
	}
	if obj := objectSlice(raw); obj != "" {
		if op, ok := unmarshalWire([]byte(obj), true); ok {
			return op, true
		}
	}
	return scanScore(raw)
}

func unmarshalWire(data []byte, recovered bool) (audit.Opinion, bool) {
	var w opinionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return audit.Opinion{}, false
	}
	if !audit.ValidScore(w.Score) {
		return audit.Opinion{}, false
	}
	if w.Rationale == "" {
		if !recovered {
			return audit.Opinion{}, false
		}
		w.Rationale = format.Truncate(strings.TrimSpace(string(data)), 200)
	}
	return audit.Opinion{
		Score:     w.Score,
		Rationale: w.Rationale,
		Cited:     w.Cited,
		Recovered: recovered,
	}, true
}

// cleanJSON strips markdown code fences and surrounding whitespace.
// Models often wrap JSON in ```json ... ``` blocks. Handles
// ```json\n{...}\n```, ```\n{...}\n```, and bare JSON.
func cleanJSON(data []byte) []byte {
	s := bytes.TrimSpace(data)
	if len(s) == 0 {
		return s
	}

	if bytes.HasPrefix(s, []byte("```")) {
		if idx := bytes.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		}
		if bytes.HasSuffix(s, []byte("```")) {
			s = s[:len(s)-3]
		}
		s = bytes.TrimSpace(s)
	}

	return s
}

// objectSlice returns the widest {...} slice of raw, or "" when the
// text holds no object at all.
func objectSlice(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

// scanScore is the last rung: the first rune inside the score domain
// becomes the score, with the surrounding text kept as rationale.
func scanScore(raw string) (audit.Opinion, bool) {
	for _, r := range raw {
		if r >= '1' && r <= '5' {
			return audit.Opinion{
				Score:     int(r - '0'),
				Rationale: "score recovered from unstructured payload: " + format.Truncate(strings.TrimSpace(raw), 200),
				Recovered: true,
			}, true
		}
	}
	return audit.Opinion{}, false
}
