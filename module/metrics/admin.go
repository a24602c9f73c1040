package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mysocial-network/beacon/module"
)

type AdminCollector struct {
	commandsExecuted *prometheus.CounterVec
}

var _ module.AdminMetrics = (*AdminCollector)(nil)

func NewAdminCollector(registerer prometheus.Registerer) *AdminCollector {
	return &AdminCollector{
		commandsExecuted: promauto.With(registerer).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceAdmin,
			Subsystem: subsystemCommands,
			Name:      "executed_total",
			Help:      "the number of admin commands executed, by command and result",
		}, []string{LabelCommand, LabelResult}),
	}
}

func (ac *AdminCollector) AdminCommandExecuted(command string, success bool) {
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}
	ac.commandsExecuted.WithLabelValues(command, result).Inc()
}
