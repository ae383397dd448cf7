package osmextract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterStats(t *testing.T) {
	stats := Stats{Nodes: 3, Edges: 5, Names: 2, DanglingEdges: 1, AmbiguousRestrictions: 4}
	registry := prometheus.NewRegistry()
	require.NoError(t, RegisterStats(stats, registry))
	// the same registerer can't take the second run
	assert.Error(t, RegisterStats(stats, registry))

	count, err := testutil.GatherAndCount(registry, "osmextract_records")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	count, err = testutil.GatherAndCount(registry, "osmextract_dropped_records")
	require.NoError(t, err)
	assert.Equal(t, 8, count)
}

func TestWriteStatsFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "osmextract.prom")
	require.NoError(t, WriteStatsFile(Stats{Nodes: 3, AmbiguousRestrictions: 4}, fname))
	content, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(content), `osmextract_records{kind="nodes"} 3`)
	assert.Contains(t, string(content), `osmextract_dropped_records{reason="ambiguous_restrictions"} 4`)
}
