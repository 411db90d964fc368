package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fumiya-kume/secpatch/internal/types"
)

func TestObserveResult(t *testing.T) {
	m := New()

	m.ObserveResult(types.PatchResult{
		Original: "a",
		Patched:  "b",
		Modified: true,
		Outcomes: []types.Outcome{
			{Family: types.FamilyProcess, Status: types.OutcomeApplied},
			{Family: types.FamilyInput, Status: types.OutcomeApplied},
			{Family: types.FamilyInput, Status: types.OutcomeNotApplicable},
		},
		Diagnostics: []string{"detector 'x' failed"},
	}, 2*time.Millisecond)
	m.ObserveResult(types.Unchanged("c"), time.Millisecond)
	m.ObserveResult(types.PatchResult{Original: "d", Patched: "d", Err: errors.New("boom")}, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FragmentsTotal.WithLabelValues(ResultModified)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FragmentsTotal.WithLabelValues(ResultUnchanged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FragmentsTotal.WithLabelValues(ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutcomesTotal.WithLabelValues("process", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutcomesTotal.WithLabelValues("input", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutcomesTotal.WithLabelValues("input", "not-applicable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiagnosticsTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FragmentLatency))
}

func TestObserveRequestAndCache(t *testing.T) {
	m := New()

	m.ObserveRequest("/v2/vul", 200, 3*time.Millisecond)
	m.ObserveRequest("/v2/vul", 200, time.Millisecond)
	m.ObserveRequest("/v1/patch", 400, time.Millisecond)
	m.ObserveCache(CacheHit)
	m.ObserveCache(CacheMiss)
	m.ObserveCache(CacheMiss)
	m.ObserveBatch()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/v2/vul", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/v1/patch", "400")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RequestLatency))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues(CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchRunsTotal))
}

func TestRegistryGathers(t *testing.T) {
	m := New()
	m.ObserveBatch()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["secpatch_batch_runs_total"])
	assert.True(t, names["go_goroutines"])
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveResult(types.Unchanged("x"), time.Millisecond)
		m.ObserveBatch()
		m.ObserveRequest("/healthz", 200, time.Millisecond)
		m.ObserveCache(CacheHit)
	})
	assert.Nil(t, m.Registry())
}
