package markov

import (
	"context"
	"log/slog"
)

// GenerateStream generates characters one at a time and returns a read-only
// channel of them. This allows processing generated text as it is produced,
// which is useful when the output is long or written incrementally. The
// channel is closed once WithLength characters were sent or the context is
// cancelled. WithStats is filled in only when the stream runs to completion.
func (m *Model) GenerateStream(ctx context.Context, opts ...GenerateOption) (<-chan rune, error) {
	options := newGenerateOptions(opts)
	if options.length > 0 && m.corpus.Len() == 0 {
		return nil, ErrNoData
	}

	runeChan := make(chan rune)

	go func() {
		defer close(runeChan)

		gen := m.newGeneration(options, 0)

		for _, r := range gen.seed(options.seedText, options.length) {
			select {
			case <-ctx.Done():
				return
			case runeChan <- r:
			}
		}

		for gen.generated < options.length {
			r := gen.next()
			select {
			case <-ctx.Done():
				m.logger.DebugContext(ctx, "Generation stream cancelled by context",
					slog.Int("generated_length", gen.generated-1),
				)
				return
			case runeChan <- r:
			}
		}

		stats := gen.stats()
		if options.stats != nil {
			*options.stats = stats
		}
		m.logger.DebugContext(ctx, "Generation stream completed",
			slog.Int("generated_length", stats.Generated),
			slog.Int("fallbacks", stats.Fallbacks),
		)
	}()

	return runeChan, nil
}
