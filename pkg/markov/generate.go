package markov

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
)

// generateOptions is used by the generate functions to configure default options.
type generateOptions struct {
	length      int
	seedText    string
	windowReset int
	sample      []SampleOption
	randSeed    *uint64
	stats       *RunStats
}

// GenerateOption is a function that configures generation parameters. It's used
// as a variadic argument in generation functions like Generate and GenerateStream.
type GenerateOption func(*generateOptions)

// WithLength sets the number of characters to generate.
func WithLength(n int) GenerateOption {
	return func(o *generateOptions) { o.length = n }
}

// WithSeedText starts generation from the given text. The seed is emitted as
// the beginning of the output, counts toward the length, and fills the
// context window before the first sampled character.
func WithSeedText(text string) GenerateOption {
	return func(o *generateOptions) { o.seedText = text }
}

// WithWindowReset sets how many characters of context remain after a context
// could not be found anywhere in the corpus, counting the substituted random
// character. The default of 1 keeps only that character.
func WithWindowReset(n int) GenerateOption {
	return func(o *generateOptions) { o.windowReset = n }
}

// WithSampleOptions passes options through to the Sampler of each run.
func WithSampleOptions(opts ...SampleOption) GenerateOption {
	return func(o *generateOptions) { o.sample = append(o.sample, opts...) }
}

// WithRandSeed makes generation reproducible. Each run started by
// GenerateMany gets its own stream derived from the seed and the run index.
func WithRandSeed(seed uint64) GenerateOption {
	return func(o *generateOptions) { o.randSeed = &seed }
}

// WithStats records what happened during generation into dst once it
// finishes. For GenerateMany the stats of all runs are summed.
func WithStats(dst *RunStats) GenerateOption {
	return func(o *generateOptions) { o.stats = dst }
}

// RunStats summarizes a generation run.
type RunStats struct {
	Generated int         // Characters emitted, including seed text.
	Fallbacks int         // Times an unknown context forced a random character.
	Sample    SampleStats // How the sampler answered each query.
}

// Add accumulates other into s.
func (s *RunStats) Add(other RunStats) {
	s.Generated += other.Generated
	s.Fallbacks += other.Fallbacks
	s.Sample.Add(other.Sample)
}

func newGenerateOptions(opts []GenerateOption) *generateOptions {
	options := &generateOptions{
		length:      100,
		windowReset: 1,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// generation is the state of one stream of generated characters: the sampler
// with its cursor and the sliding context window.
type generation struct {
	sampler   *Sampler
	window    []rune
	limit     int
	reset     int
	generated int
	fallbacks int
}

func (m *Model) newGeneration(options *generateOptions, run int) *generation {
	sampleOpts := options.sample
	if options.randSeed != nil {
		rng := rand.New(rand.NewPCG(*options.randSeed, uint64(run)))
		sampleOpts = append(sampleOpts[:len(sampleOpts):len(sampleOpts)], WithRand(rng))
	}

	limit := m.maxOrder + 1
	reset := min(max(options.windowReset, 1), limit)

	return &generation{
		sampler: m.NewSampler(sampleOpts...),
		window:  make([]rune, 0, limit),
		limit:   limit,
		reset:   reset,
	}
}

// seed loads the seed text into the window and returns the characters to
// emit, truncated to length.
func (g *generation) seed(text string, length int) []rune {
	runes := []rune(text)
	length = max(length, 0)
	if len(runes) > length {
		runes = runes[:length]
	}
	for _, r := range runes {
		g.push(r)
	}
	g.generated += len(runes)
	return runes
}

// next produces one character and slides the window.
func (g *generation) next() rune {
	r, err := g.sampler.Sample(string(g.window))
	if err != nil {
		// Callers reject empty corpora up front, so a uniform draw cannot fail.
		r, _ = g.sampler.Sample("")
		g.fallbacks++
		keep := g.reset - 1
		g.window = append(g.window[:0], g.window[len(g.window)-min(keep, len(g.window)):]...)
	}
	g.push(r)
	g.generated++
	return r
}

func (g *generation) push(r rune) {
	if len(g.window) < g.limit {
		g.window = append(g.window, r)
		return
	}
	copy(g.window, g.window[1:])
	g.window[len(g.window)-1] = r
}

func (g *generation) stats() RunStats {
	return RunStats{
		Generated: g.generated,
		Fallbacks: g.fallbacks,
		Sample:    g.sampler.Stats(),
	}
}

// Generate produces a string of generated characters. It starts with an empty
// context, or from WithSeedText, and stops after WithLength characters
// (default 100). An empty corpus yields ErrNoData; otherwise generation only
// stops early if ctx is cancelled.
func (m *Model) Generate(ctx context.Context, opts ...GenerateOption) (string, error) {
	options := newGenerateOptions(opts)
	out, stats, err := m.generate(ctx, options, 0)
	if err != nil {
		return "", err
	}
	if options.stats != nil {
		*options.stats = stats
	}
	return out, nil
}

// GenerateFromString is a convenience wrapper around Generate that uses
// startText as the seed.
func (m *Model) GenerateFromString(ctx context.Context, startText string, opts ...GenerateOption) (string, error) {
	return m.Generate(ctx, append(opts, WithSeedText(startText))...)
}

func (m *Model) generate(ctx context.Context, options *generateOptions, run int) (string, RunStats, error) {
	if options.length > 0 && m.corpus.Len() == 0 {
		return "", RunStats{}, ErrNoData
	}

	gen := m.newGeneration(options, run)
	var builder strings.Builder

	for _, r := range gen.seed(options.seedText, options.length) {
		builder.WriteRune(r)
	}

	for gen.generated < options.length {
		if err := ctx.Err(); err != nil {
			return "", RunStats{}, err
		}
		builder.WriteRune(gen.next())
	}

	stats := gen.stats()
	m.logger.DebugContext(ctx, "Generation completed",
		slog.Int("run", run),
		slog.Int("generated_length", stats.Generated),
		slog.Int("fallbacks", stats.Fallbacks),
		slog.Int("table_hits", stats.Sample.Table),
		slog.Int("cursor_hits", stats.Sample.CursorHits),
		slog.Int("rewind_hits", stats.Sample.RewindHits),
	)

	return builder.String(), stats, nil
}
