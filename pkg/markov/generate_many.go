package markov

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
)

// GenerateMany runs n independent generations concurrently over the same
// Model and returns their outputs in run order. Every run gets its own
// Sampler, and with it its own search cursor and random source: derived from
// WithRandSeed when given, freshly seeded otherwise. Any WithRand passed
// through WithSampleOptions is overridden so that runs never share a source.
func (m *Model) GenerateMany(ctx context.Context, n int, opts ...GenerateOption) ([]string, error) {
	options := newGenerateOptions(opts)
	if n <= 0 {
		return nil, nil
	}
	if options.length > 0 && m.corpus.Len() == 0 {
		return nil, ErrNoData
	}
	if options.randSeed == nil {
		seed := rand.Uint64()
		options.randSeed = &seed
	}

	outputs := make([]string, n)
	stats := make([]RunStats, n)

	group, groupCtx := errgroup.WithContext(ctx)
	for run := 0; run < n; run++ {
		group.Go(func() error {
			out, runStats, err := m.generate(groupCtx, options, run)
			if err != nil {
				return err
			}
			outputs[run] = out
			stats[run] = runStats
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var total RunStats
	for _, s := range stats {
		total.Add(s)
	}
	if options.stats != nil {
		*options.stats = total
	}

	m.logger.InfoContext(ctx, "Generation runs completed",
		slog.Int("runs", n),
		slog.Int("generated_length", total.Generated),
		slog.Int("fallbacks", total.Fallbacks),
	)

	return outputs, nil
}
