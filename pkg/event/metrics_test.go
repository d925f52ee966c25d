package event

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_AggregatesCountsByKindAndAgent(t *testing.T) {
	bus := NewBus()
	m, err := NewMetrics(bus, prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	defer m.Close()

	bus.Publish(New(KindAgentStarted, "agent-1", nil))
	bus.Publish(New(KindToolCalled, "agent-1", nil))
	bus.Publish(New(KindErrorRaised, "agent-2", nil))

	require.Eventually(t, func() bool {
		snap := m.Snapshot()
		return snap.CountsByAgent["agent-1"] == 2 && snap.CountsByAgent["agent-2"] == 1
	}, time.Second, time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.Failures)
	assert.Equal(t, uint64(2), snap.Successes)
	assert.Equal(t, uint64(1), snap.CountsByKind[KindToolCalled])
}

func TestMetrics_StepCompletedRecordsDuration(t *testing.T) {
	bus := NewBus()
	m, err := NewMetrics(bus, prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	defer m.Close()

	bus.Publish(New(KindStepCompleted, "agent-1", map[string]any{"duration_ms": float64(42)}))

	require.Eventually(t, func() bool {
		return m.Snapshot().CountsByKind[KindStepCompleted] == 1
	}, time.Second, time.Millisecond)
}

func TestMetrics_NilRegistryAndMeterStillAggregate(t *testing.T) {
	bus := NewBus()
	m, err := NewMetrics(bus, nil, nil)
	require.NoError(t, err)
	defer m.Close()

	bus.Publish(New(KindAgentStarted, "agent-1", nil))
	require.Eventually(t, func() bool {
		return m.Snapshot().CountsByKind[KindAgentStarted] == 1
	}, time.Second, time.Millisecond)
}
