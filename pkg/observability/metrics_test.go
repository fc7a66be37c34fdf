package observability_test

import (
	"testing"

	"github.com/aretw0/stacktester/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	m.SessionStarted()
	m.SessionStarted()
	m.SessionFailed()
	m.RaceLost(observability.OpReplace)
	m.StoreError(1020)
	m.Instruction("PUSH")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistryRaceLost.WithLabelValues("replace")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrors.WithLabelValues("1020")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Instructions.WithLabelValues("PUSH")))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *observability.Metrics
	assert.NotPanics(t, func() {
		m.SessionStarted()
		m.SessionFinished()
		m.SessionFailed()
		m.RaceLost(observability.OpPutIfAbsent)
		m.StoreError(1)
		m.Instruction("POP")
	})
}
