package markov

import (
	"log/slog"
	"slices"
	"time"
	"unicode/utf8"
)

// Build constructs a Model from c by iterative order expansion.
//
// At order k every window of k+1 characters is split into a k-character
// context and its continuation. For k > 1 a context is only tallied when its
// (k-1)-character suffix was kept at the previous order; a context whose
// suffix already has a single continuation cannot become more ambiguous.
// Contexts with fewer than two distinct continuations are dropped. Expansion
// stops at the first order that keeps nothing, at the order cap, or at
// OrderLimit.
func Build(c *Corpus, opts ...BuildOption) *Model {
	options := &buildOptions{
		logger: discardLogger(),
	}
	for _, opt := range opts {
		opt(options)
	}

	limit := OrderLimit
	if options.orderCap > 0 && options.orderCap < limit {
		limit = options.orderCap
	}

	m := &Model{
		corpus: c,
		table:  make(map[string]entry),
		logger: options.logger,
	}

	started := time.Now()
	n := c.Len()
	for k := 1; k <= limit; k++ {
		// scratch holds this order's tallies; it is discarded after merging.
		scratch := make(map[string][]Continuation)
		for i := 0; i+k < n; i++ {
			key, next := c.window(i, k)
			if k > 1 {
				_, size := utf8.DecodeRuneInString(key)
				if _, ok := m.table[key[size:]]; !ok {
					continue
				}
			}
			scratch[key] = tally(scratch[key], next)
		}

		kept := 0
		for key, conts := range scratch {
			if len(conts) < 2 {
				continue
			}
			slices.SortFunc(conts, func(a, b Continuation) int { return int(a.Char) - int(b.Char) })
			total := 0
			for _, cont := range conts {
				total += cont.Count
			}
			m.table[key] = entry{conts: conts, total: total}
			kept++
		}

		m.logger.Debug("Order expanded",
			slog.Int("order", k),
			slog.Int("candidates", len(scratch)),
			slog.Int("contexts_kept", kept),
		)

		if kept == 0 {
			break
		}
		m.maxOrder = k
		m.contextsPerOrder = append(m.contextsPerOrder, kept)
	}

	m.logger.Info("Model built",
		slog.Int("characters", n),
		slog.Int("max_order", m.maxOrder),
		slog.Int("contexts", len(m.table)),
		slog.Duration("elapsed", time.Since(started)),
	)

	return m
}

// BuildString is a convenience wrapper around Build for a text held in memory.
func BuildString(text string, opts ...BuildOption) *Model {
	return Build(NewCorpus(text), opts...)
}

// tally increments the count for r, appending it if it has not been seen.
func tally(conts []Continuation, r rune) []Continuation {
	for i := range conts {
		if conts[i].Char == r {
			conts[i].Count++
			return conts
		}
	}
	return append(conts, Continuation{Char: r, Count: 1})
}
