package prom

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/hashcons/intern"
	"github.com/IvanBrykalov/hashcons/value"
)

func TestTableMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg, "hc", nil)

	r := intern.NewRegistry(intern.Options{
		Capacity: map[value.Kind]int{value.KindPitch: 2},
		Shards:   1,
		Metrics:  a.Kinds(),
	})
	r.Pitch(value.StepC, 0, 4) // miss
	r.Pitch(value.StepC, 0, 4) // hit
	r.Pitch(value.StepD, 0, 4) // miss
	r.Pitch(value.StepE, 0, 4) // miss, evicts C4

	assert.Equal(t, 1.0, testutil.ToFloat64(a.hits.WithLabelValues("pitch")))
	assert.Equal(t, 3.0, testutil.ToFloat64(a.misses.WithLabelValues("pitch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.evicts.WithLabelValues("pitch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.entries.WithLabelValues("pitch")))
	assert.Equal(t, 0.0, testutil.ToFloat64(a.hits.WithLabelValues("note")))
}

func TestDaemonMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg, "hc", prometheus.Labels{"instance": "test"})

	m := a.Daemon()
	m.Cycle(20 * time.Millisecond)
	m.Replaced(7)
	m.Conflict()
	m.Failed()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.cycles))
	assert.Equal(t, 7.0, testutil.ToFloat64(a.replaced))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.conflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.failures))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "hc_consolidate_cycle_duration_seconds")
}
