package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CTAG07/runechain/pkg/markov"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveBuild(t *testing.T) {
	m := New()
	m.ObserveBuild(markov.ModelStats{
		MaxOrder:         2,
		Characters:       6,
		Contexts:         3,
		ContextsPerOrder: []int{2, 1},
	}, 10*time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.MaxOrder))
	require.Equal(t, 3.0, testutil.ToFloat64(m.StoredContexts))
	require.Equal(t, 6.0, testutil.ToFloat64(m.CorpusCharacters))
	require.Equal(t, 2.0, testutil.ToFloat64(m.ContextsPerOrder.WithLabelValues("1")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ContextsPerOrder.WithLabelValues("2")))
	require.Equal(t, 1, testutil.CollectAndCount(m.BuildDuration))
}

func TestObserveRun(t *testing.T) {
	m := New()
	stats := markov.RunStats{
		Generated: 100,
		Fallbacks: 3,
		Sample: markov.SampleStats{
			Uniform:    4,
			Table:      60,
			CursorHits: 30,
			RewindHits: 6,
			NoData:     3,
		},
	}
	m.ObserveRun(stats, time.Millisecond)
	m.ObserveRun(stats, time.Millisecond)

	require.Equal(t, 200.0, testutil.ToFloat64(m.GeneratedTotal))
	require.Equal(t, 6.0, testutil.ToFloat64(m.FallbacksTotal))
	require.Equal(t, 120.0, testutil.ToFloat64(m.SampleOutcomes.WithLabelValues("table")))
	require.Equal(t, 12.0, testutil.ToFloat64(m.SampleOutcomes.WithLabelValues("rewind")))
	require.Equal(t, 6.0, testutil.ToFloat64(m.SampleOutcomes.WithLabelValues("no_data")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveBuild(markov.BuildString("abcabd").Stats(), time.Millisecond)

	path := filepath.Join(t.TempDir(), "runechain.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "runechain_max_order 2"), "textfile:\n%s", data)

	n, err := testutil.GatherAndCount(m.Registry(), "runechain_contexts_per_order")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
