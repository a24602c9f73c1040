package metrics

import (
	"time"

	"github.com/mysocial-network/beacon/module"
)

type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	nc := &NoopCollector{}
	return nc
}

var _ module.RandomnessMetrics = (*NoopCollector)(nil)
var _ module.AdminMetrics = (*NoopCollector)(nil)

func (nc *NoopCollector) Epoch(uint64)                          {}
func (nc *NoopCollector) RoundsPending(int)                     {}
func (nc *NoopCollector) ByzantinePeerIgnored()                 {}
func (nc *NoopCollector) RoundCompleted(uint64)                 {}
func (nc *NoopCollector) RoundGenerationLatency(time.Duration)  {}
func (nc *NoopCollector) RoundObservationLatency(time.Duration) {}
func (nc *NoopCollector) RoundStuck(uint64)                     {}
func (nc *NoopCollector) AdminCommandExecuted(string, bool)     {}
