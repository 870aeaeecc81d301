package markov

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"unicode/utf8"
)

// sampleOptions is used by NewSampler to configure default options.
type sampleOptions struct {
	temperature float64
	topK        int
	rng         *rand.Rand
}

// SampleOption is a function that configures a Sampler.
type SampleOption func(*sampleOptions)

// WithTemperature adjusts the randomness of selection among stored
// continuations. A value of 1.0 reproduces the corpus distribution exactly.
// Values > 1.0 flatten it, values < 1.0 sharpen it, and a value of 0 or less
// always picks the most frequent continuation.
func WithTemperature(t float64) SampleOption {
	return func(o *sampleOptions) { o.temperature = t }
}

// WithTopK restricts selection among stored continuations to the `k` most
// frequent ones. A value of 0 disables Top-K sampling.
func WithTopK(k int) SampleOption {
	return func(o *sampleOptions) { o.topK = k }
}

// WithRand makes the Sampler draw from r instead of the global source. A
// *rand.Rand is not safe for concurrent use, so each Sampler needs its own.
func WithRand(r *rand.Rand) SampleOption {
	return func(o *sampleOptions) { o.rng = r }
}

// SampleStats counts how each Sample call was answered.
type SampleStats struct {
	Uniform    int // Empty key; uniform draw from the corpus.
	Table      int // Weighted draw from a stored context.
	CursorHits int // Verbatim match found searching forward from the cursor.
	RewindHits int // Verbatim match found only after restarting from offset 0.
	NoData     int // Key absent from the table and from the corpus.
}

// Add accumulates other into s.
func (s *SampleStats) Add(other SampleStats) {
	s.Uniform += other.Uniform
	s.Table += other.Table
	s.CursorHits += other.CursorHits
	s.RewindHits += other.RewindHits
	s.NoData += other.NoData
}

// Sampler answers "what character follows this context?" against a Model.
// It owns the search cursor used to speed up consecutive verbatim searches,
// so it must not be shared between goroutines; create one per stream.
type Sampler struct {
	model   *Model
	options sampleOptions
	// cursor is the byte offset of the last verbatim match. It only affects
	// where searching starts, never the result.
	cursor int
	stats  SampleStats
}

// NewSampler creates a Sampler with its cursor at the start of the corpus.
func (m *Model) NewSampler(opts ...SampleOption) *Sampler {
	options := sampleOptions{
		temperature: 1.0,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Sampler{model: m, options: options}
}

// Cursor returns the byte offset where the next verbatim search starts.
func (s *Sampler) Cursor() int { return s.cursor }

// Stats returns the outcome counts accumulated so far.
func (s *Sampler) Stats() SampleStats { return s.stats }

// Sample returns a character that may follow key.
//
// An empty key yields a uniformly random corpus character. A stored context
// yields a weighted draw over its continuations. Any other key is looked up
// verbatim in the corpus, first from the cursor and then from the start, and
// the character after the first match is returned. If key never occurs with
// a following character, Sample returns ErrNoData.
func (s *Sampler) Sample(key string) (rune, error) {
	if key == "" {
		return s.uniform()
	}

	if e, ok := s.model.table[key]; ok {
		s.stats.Table++
		return s.choose(e), nil
	}

	if utf8.ValidString(key) {
		if r, ok := s.findVerbatim(key, s.cursor); ok {
			s.stats.CursorHits++
			return r, nil
		}
		if s.cursor > 0 {
			if r, ok := s.findVerbatim(key, 0); ok {
				s.stats.RewindHits++
				return r, nil
			}
		}
	}

	s.stats.NoData++
	return utf8.RuneError, fmt.Errorf("%w: %q", ErrNoData, key)
}

// uniform draws a character by index so that every character of the corpus
// is equally likely regardless of its encoded width.
func (s *Sampler) uniform() (rune, error) {
	n := s.model.corpus.Len()
	if n == 0 {
		s.stats.NoData++
		return utf8.RuneError, fmt.Errorf("%w: empty corpus", ErrNoData)
	}
	s.stats.Uniform++
	return s.model.corpus.RuneAt(s.randIntN(n))
}

// findVerbatim locates the first occurrence of key at or after byte offset
// from that has a character after it. Matches of valid UTF-8 in valid UTF-8
// always start on a character boundary.
func (s *Sampler) findVerbatim(key string, from int) (rune, bool) {
	text := s.model.corpus.text
	if from > len(text) {
		return 0, false
	}
	idx := strings.Index(text[from:], key)
	if idx < 0 {
		return 0, false
	}
	start := from + idx
	after := start + len(key)
	if after >= len(text) {
		// A later occurrence would run past the end as well.
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(text[after:])
	s.cursor = start
	return r, true
}

// choose selects a continuation from e according to the sampler options.
func (s *Sampler) choose(e entry) rune {
	choices, total := e.conts, e.total

	if s.options.topK > 0 && s.options.topK < len(choices) {
		// The table is shared, so sort a copy.
		choices = slices.Clone(choices)
		slices.SortStableFunc(choices, func(a, b Continuation) int { return b.Count - a.Count })
		choices = choices[:s.options.topK]
		total = 0
		for _, choice := range choices {
			total += choice.Count
		}
	}

	if s.options.temperature <= 0 { // Deterministic
		best := choices[0]
		for _, choice := range choices[1:] {
			if choice.Count > best.Count {
				best = choice
			}
		}
		return best.Char
	}

	if s.options.temperature == 1.0 { // Standard weighted random
		n := s.randIntN(total)
		for _, choice := range choices {
			n -= choice.Count
			if n < 0 {
				return choice.Char
			}
		}
		return choices[len(choices)-1].Char
	}

	// Temperature-based sampling
	weights := make([]float64, len(choices))
	maxLog := math.Inf(-1)
	for i, choice := range choices {
		weights[i] = math.Log(float64(choice.Count)) / s.options.temperature
		if weights[i] > maxLog {
			maxLog = weights[i]
		}
	}
	var totalWeight float64
	for i := range weights {
		weights[i] = math.Exp(weights[i] - maxLog)
		totalWeight += weights[i]
	}
	x := s.randFloat() * totalWeight
	for i, choice := range choices {
		x -= weights[i]
		if x < 0 {
			return choice.Char
		}
	}
	return choices[len(choices)-1].Char
}

func (s *Sampler) randIntN(n int) int {
	if s.options.rng != nil {
		return s.options.rng.IntN(n)
	}
	return rand.IntN(n)
}

func (s *Sampler) randFloat() float64 {
	if s.options.rng != nil {
		return s.options.rng.Float64()
	}
	return rand.Float64()
}
