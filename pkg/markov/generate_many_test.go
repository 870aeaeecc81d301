package markov

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"
)

func TestGenerateMany(t *testing.T) {
	ctx := context.Background()
	m := buildTestModel(t, "the cat sat on the mat. the dog sat on the log. the cat saw the dog.")

	var stats RunStats
	outputs, err := m.GenerateMany(ctx, 8, WithLength(40), WithRandSeed(99), WithStats(&stats))
	if err != nil {
		t.Fatalf("GenerateMany() failed: %v", err)
	}
	if len(outputs) != 8 {
		t.Fatalf("GenerateMany() returned %d outputs, want 8", len(outputs))
	}
	for i, out := range outputs {
		if got := utf8.RuneCountInString(out); got != 40 {
			t.Errorf("output %d has %d characters, want 40", i, got)
		}
	}
	if stats.Generated != 8*40 {
		t.Errorf("stats.Generated = %d, want %d", stats.Generated, 8*40)
	}

	again, err := m.GenerateMany(ctx, 8, WithLength(40), WithRandSeed(99))
	if err != nil {
		t.Fatalf("GenerateMany() failed: %v", err)
	}
	for i := range outputs {
		if outputs[i] != again[i] {
			t.Errorf("run %d is not reproducible: %q != %q", i, outputs[i], again[i])
		}
	}

	single, err := m.Generate(ctx, WithLength(40), WithRandSeed(99))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if single != outputs[0] {
		t.Errorf("first run %q differs from Generate with the same seed %q", outputs[0], single)
	}
}

func TestGenerateManyEdgeCases(t *testing.T) {
	ctx := context.Background()

	t.Run("No runs", func(t *testing.T) {
		m := buildTestModel(t, "abcabd")
		outputs, err := m.GenerateMany(ctx, 0)
		if err != nil || outputs != nil {
			t.Errorf("GenerateMany(0) = %v, %v, want nil, nil", outputs, err)
		}
	})

	t.Run("Empty corpus", func(t *testing.T) {
		m := buildTestModel(t, "")
		if _, err := m.GenerateMany(ctx, 3, WithLength(5)); !errors.Is(err, ErrNoData) {
			t.Errorf("GenerateMany() error = %v, want ErrNoData", err)
		}
	})

	t.Run("Cancelled context", func(t *testing.T) {
		m := buildTestModel(t, "abcabd")
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := m.GenerateMany(cancelled, 4, WithLength(10)); !errors.Is(err, context.Canceled) {
			t.Errorf("GenerateMany() error = %v, want context.Canceled", err)
		}
	})
}
