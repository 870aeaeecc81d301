package markov

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"
)

func TestExport(t *testing.T) {
	m := buildTestModel(t, "abcabd")
	got := m.Export()

	want := ExportedModel{
		MaxOrder:   2,
		Characters: 6,
		Contexts: []ExportedContext{
			{Key: "b", Order: 1, Total: 2, Next: map[string]int{"c": 1, "d": 1}},
			{Key: "ab", Order: 2, Total: 2, Next: map[string]int{"c": 1, "d": 1}},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Export() = %+v, want %+v", got, want)
	}
}

func TestExportJSON(t *testing.T) {
	m := buildTestModel(t, "aaab")

	var buf bytes.Buffer
	if err := m.ExportJSON(&buf); err != nil {
		t.Fatalf("ExportJSON() failed: %v", err)
	}

	var decoded struct {
		MaxOrder int `json:"max_order"`
		Contexts []struct {
			Key  string         `json:"key"`
			Next map[string]int `json:"next"`
		} `json:"contexts"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("ExportJSON() wrote invalid JSON: %v\n%s", err, buf.String())
	}
	if decoded.MaxOrder != 2 {
		t.Errorf("max_order = %d, want 2", decoded.MaxOrder)
	}
	if len(decoded.Contexts) != 2 || decoded.Contexts[0].Key != "a" || decoded.Contexts[0].Next["a"] != 2 {
		t.Errorf("unexpected contexts: %+v", decoded.Contexts)
	}
}

func TestStats(t *testing.T) {
	m := buildTestModel(t, "abcabd")
	got := m.Stats()
	want := ModelStats{
		MaxOrder:         2,
		Characters:       6,
		Bytes:            6,
		Contexts:         2,
		Transitions:      4,
		ContextsPerOrder: []int{1, 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}

	got.ContextsPerOrder[0] = 10
	if m.Stats().ContextsPerOrder[0] != 1 {
		t.Error("modifying returned stats changed the model")
	}
}
