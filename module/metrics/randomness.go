package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mysocial-network/beacon/module"
)

// latencyBuckets span 10ms to 1000s in a 1-2-5 progression.
var latencyBuckets = []float64{
	0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 20, 50, 100, 200, 500, 1000,
}

// RandomnessCollector implements module.RandomnessMetrics with Prometheus collectors.
type RandomnessCollector struct {
	epoch                   prometheus.Gauge
	roundsPending           prometheus.Gauge
	ignoredByzantinePeers   prometheus.Counter
	roundCompletionSequence prometheus.Gauge
	roundGenerationLatency  prometheus.Histogram
	roundObservationLatency prometheus.Histogram
	stuckRounds             prometheus.Counter

	// highestCompletedRound keeps the completion sequence monotonic. It is only
	// written by the beacon's event loop.
	highestCompletedRound uint64
	anyCompleted          bool
}

var _ module.RandomnessMetrics = (*RandomnessCollector)(nil)

func NewRandomnessCollector(registerer prometheus.Registerer) *RandomnessCollector {
	factory := promauto.With(registerer)

	return &RandomnessCollector{
		epoch: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceRandomness,
			Name:      "epoch",
			Help:      "The epoch for which the beacon is currently generating randomness",
		}),
		roundsPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceRandomness,
			Name:      "num_rounds_pending",
			Help:      "The number of rounds requested but not yet completed",
		}),
		ignoredByzantinePeers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceRandomness,
			Name:      "num_ignored_byzantine_peers",
			Help:      "The number of peers ignored for the rest of the epoch due to invalid signatures",
		}),
		roundCompletionSequence: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceRandomness,
			Name:      "round_completion_sequence",
			Help:      "The highest round completed by the beacon",
		}),
		roundGenerationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceRandomness,
			Name:      "round_generation_latency",
			Help:      "Time from requesting a round locally until its full signature was obtained, in seconds",
			Buckets:   latencyBuckets,
		}),
		roundObservationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceRandomness,
			Name:      "round_observation_latency",
			Help:      "Time from first receiving signatures for a round not yet requested locally until its completion, in seconds",
			Buckets:   latencyBuckets,
		}),
		stuckRounds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceRandomness,
			Name:      "num_stuck_rounds",
			Help:      "The number of rounds that exceeded their aggregation attempts",
		}),
	}
}

func (rc *RandomnessCollector) Epoch(epoch uint64) {
	rc.epoch.Set(float64(epoch))
}

func (rc *RandomnessCollector) RoundsPending(count int) {
	rc.roundsPending.Set(float64(count))
}

func (rc *RandomnessCollector) ByzantinePeerIgnored() {
	rc.ignoredByzantinePeers.Inc()
}

// RoundCompleted advances the completion sequence. Rounds completed out of order
// do not move the gauge backwards.
func (rc *RandomnessCollector) RoundCompleted(round uint64) {
	if rc.anyCompleted && round <= rc.highestCompletedRound {
		return
	}
	rc.anyCompleted = true
	rc.highestCompletedRound = round
	rc.roundCompletionSequence.Set(float64(round))
}

func (rc *RandomnessCollector) RoundGenerationLatency(duration time.Duration) {
	rc.roundGenerationLatency.Observe(duration.Seconds())
}

func (rc *RandomnessCollector) RoundObservationLatency(duration time.Duration) {
	rc.roundObservationLatency.Observe(duration.Seconds())
}

func (rc *RandomnessCollector) RoundStuck(uint64) {
	rc.stuckRounds.Inc()
}
