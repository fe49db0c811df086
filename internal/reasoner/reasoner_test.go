package reasoner

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractJSONBareObject(t *testing.T) {
	raw, err := ExtractJSON(`{"rationale": "fits well"}`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var out struct {
		Rationale string `json:"rationale"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Rationale != "fits well" {
		t.Errorf("rationale = %q", out.Rationale)
	}
}

func TestExtractJSONFencedBlock(t *testing.T) {
	reply := "Here is my assessment:\n```json\n{\"recommendation\": \"approve\"}\n```\nLet me know."
	raw, err := ExtractJSON(reply)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var out struct {
		Recommendation string `json:"recommendation"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Recommendation != "approve" {
		t.Errorf("recommendation = %q", out.Recommendation)
	}
}

func TestExtractJSONWrappedInProse(t *testing.T) {
	raw, err := ExtractJSON(`Sure! The answer is {"explanation": "balanced workload"} as requested.`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var out struct {
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Explanation != "balanced workload" {
		t.Errorf("explanation = %q", out.Explanation)
	}
}

func TestExtractJSONFailures(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"empty", ""},
		{"prose only", "I cannot answer that."},
		{"unterminated", `{"key": "value"`},
		{"invalid body", `{key: value}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExtractJSON(tc.reply)
			if !errors.Is(err, ErrSchema) {
				t.Errorf("expected ErrSchema, got %v", err)
			}
		})
	}
}

func TestTokenTracker(t *testing.T) {
	tr := NewTokenTracker()
	tr.Add(1000, 500)
	tr.Add(2000, 1500)

	in, out := tr.Total()
	if in != 3000 || out != 2000 {
		t.Errorf("totals = %d in, %d out", in, out)
	}
	if tr.Calls() != 2 {
		t.Errorf("calls = %d", tr.Calls())
	}
	// 3000 in at $3/1M plus 2000 out at $15/1M.
	want := 3000.0/1_000_000*3.0 + 2000.0/1_000_000*15.0
	if got := tr.Cost(); got != want {
		t.Errorf("cost = %v, want %v", got, want)
	}
}
