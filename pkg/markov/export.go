package markov

import (
	"cmp"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"unicode/utf8"
)

// ExportedModel is the serializable view of a Model's frequency table, used to
// inspect what a corpus produced. It is write-only: models are always rebuilt
// from their corpus.
type ExportedModel struct {
	MaxOrder   int               `json:"max_order"`
	Characters int               `json:"characters"`
	Contexts   []ExportedContext `json:"contexts"`
}

// ExportedContext is the serializable representation of one stored context.
type ExportedContext struct {
	Key   string         `json:"key"`
	Order int            `json:"order"`
	Total int            `json:"total"`
	Next  map[string]int `json:"next"` // continuation -> count
}

// Export returns the frequency table sorted by order, then key.
func (m *Model) Export() ExportedModel {
	contexts := make([]ExportedContext, 0, len(m.table))
	for key, e := range m.table {
		next := make(map[string]int, len(e.conts))
		for _, cont := range e.conts {
			next[string(cont.Char)] = cont.Count
		}
		contexts = append(contexts, ExportedContext{
			Key:   key,
			Order: utf8.RuneCountInString(key),
			Total: e.total,
			Next:  next,
		})
	}
	slices.SortFunc(contexts, func(a, b ExportedContext) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})

	return ExportedModel{
		MaxOrder:   m.maxOrder,
		Characters: m.corpus.Len(),
		Contexts:   contexts,
	}
}

// ExportJSON serializes the frequency table as indented JSON to w.
func (m *Model) ExportJSON(w io.Writer) error {
	exported := m.Export()

	m.logger.Info("Model exported",
		slog.Int("max_order", exported.MaxOrder),
		slog.Int("contexts_exported", len(exported.Contexts)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}
