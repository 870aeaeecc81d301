package markov

import (
	"io"
	"log/slog"
)

// OrderLimit is the highest order Build will ever expand to. It bounds the work
// done on degenerate input such as long verbatim repetitions.
const OrderLimit = 1000

// Continuation is a character observed after a context, with the number of
// times it was observed there.
type Continuation struct {
	Char  rune
	Count int
}

// entry holds the continuations of one ambiguous context, ordered by Char.
type entry struct {
	conts []Continuation
	total int
}

// Model is a pruned, order-indexed frequency table built from a Corpus.
// Only ambiguous contexts (two or more distinct continuations) are stored;
// every other context is answered by searching the corpus itself.
//
// A Model is read-only once built and may be shared by any number of
// goroutines. Per-stream state lives in a Sampler.
type Model struct {
	corpus *Corpus
	// table keys are substrings of corpus.text and share its memory.
	table            map[string]entry
	maxOrder         int
	contextsPerOrder []int
	logger           *slog.Logger
}

// buildOptions is used by Build to configure default options.
type buildOptions struct {
	orderCap int
	logger   *slog.Logger
}

// BuildOption is a function that configures model construction.
type BuildOption func(*buildOptions)

// WithOrderCap stops order expansion after order n, clamping MaxOrder.
// A value of 0 or less leaves only the OrderLimit ceiling in place.
func WithOrderCap(n int) BuildOption {
	return func(o *buildOptions) { o.orderCap = n }
}

// WithBuildLogger sets the logger used during construction and inherited by
// the resulting Model. By default, all logs are discarded.
func WithBuildLogger(logger *slog.Logger) BuildOption {
	return func(o *buildOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// MaxOrder returns the largest order for which at least one ambiguous context
// exists.
func (m *Model) MaxOrder() int { return m.maxOrder }

// Corpus returns the corpus the model was built from.
func (m *Model) Corpus() *Corpus { return m.corpus }

// Contexts returns the number of stored (ambiguous) contexts across all orders.
func (m *Model) Contexts() int { return len(m.table) }

// Continuations returns a copy of the continuations stored for key and the sum
// of their counts. The boolean is false if key is not a stored context.
func (m *Model) Continuations(key string) ([]Continuation, int, bool) {
	e, ok := m.table[key]
	if !ok {
		return nil, 0, false
	}
	out := make([]Continuation, len(e.conts))
	copy(out, e.conts)
	return out, e.total, true
}

// SetLogger sets the logger for the Model. By default, all logs are discarded.
func (m *Model) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
