package markov

// ModelStats holds aggregated statistics for a built Model.
type ModelStats struct {
	MaxOrder         int   // The largest order with an ambiguous context
	Characters       int   // The number of characters in the corpus
	Bytes            int   // The size of the corpus in bytes
	Contexts         int   // The number of stored contexts across all orders
	Transitions      int   // The sum of counts of all stored continuations
	ContextsPerOrder []int // ContextsPerOrder[k-1] is the number of stored contexts of order k
}

// Stats returns a snapshot of statistics for the Model.
func (m *Model) Stats() ModelStats {
	transitions := 0
	for _, e := range m.table {
		transitions += e.total
	}
	perOrder := make([]int, len(m.contextsPerOrder))
	copy(perOrder, m.contextsPerOrder)

	return ModelStats{
		MaxOrder:         m.maxOrder,
		Characters:       m.corpus.Len(),
		Bytes:            m.corpus.ByteLen(),
		Contexts:         len(m.table),
		Transitions:      transitions,
		ContextsPerOrder: perOrder,
	}
}
