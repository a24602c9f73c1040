package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomnessCollector_CompletionSequenceIsMonotonic(t *testing.T) {
	collector := NewRandomnessCollector(prometheus.NewRegistry())

	collector.RoundCompleted(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(collector.roundCompletionSequence))

	collector.RoundCompleted(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(collector.roundCompletionSequence))

	// completions of older rounds must not move the sequence backwards
	collector.RoundCompleted(3)
	assert.Equal(t, float64(7), testutil.ToFloat64(collector.roundCompletionSequence))

	collector.RoundCompleted(8)
	assert.Equal(t, float64(8), testutil.ToFloat64(collector.roundCompletionSequence))
}

func TestRandomnessCollector_Gauges(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewRandomnessCollector(registry)

	collector.Epoch(12)
	collector.RoundsPending(4)
	collector.ByzantinePeerIgnored()
	collector.ByzantinePeerIgnored()
	collector.RoundStuck(9)

	assert.Equal(t, float64(12), testutil.ToFloat64(collector.epoch))
	assert.Equal(t, float64(4), testutil.ToFloat64(collector.roundsPending))
	assert.Equal(t, float64(2), testutil.ToFloat64(collector.ignoredByzantinePeers))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.stuckRounds))
}

func TestRandomnessCollector_Latencies(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewRandomnessCollector(registry)

	collector.RoundGenerationLatency(150 * time.Millisecond)
	collector.RoundObservationLatency(3 * time.Second)
	collector.RoundObservationLatency(4 * time.Second)

	families, err := registry.Gather()
	require.NoError(t, err)

	counts := make(map[string]uint64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if h := metric.GetHistogram(); h != nil {
				counts[family.GetName()] = h.GetSampleCount()
			}
		}
	}
	assert.Equal(t, uint64(1), counts["randomness_round_generation_latency"])
	assert.Equal(t, uint64(2), counts["randomness_round_observation_latency"])
}

func TestAdminCollector(t *testing.T) {
	collector := NewAdminCollector(prometheus.NewRegistry())

	collector.AdminCommandExecuted("get-partial-signatures", true)
	collector.AdminCommandExecuted("get-partial-signatures", false)
	collector.AdminCommandExecuted("get-partial-signatures", true)

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.commandsExecuted.WithLabelValues("get-partial-signatures", ResultSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.commandsExecuted.WithLabelValues("get-partial-signatures", ResultFailure)))
}
