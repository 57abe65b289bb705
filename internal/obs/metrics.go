package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workforce_transitions_total",
			Help: "Lifecycle operations attempted, by entity, operation and outcome.",
		},
		[]string{"entity", "operation", "outcome"},
	)

	auditEntriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workforce_audit_entries_total",
			Help: "Audit entries appended.",
		},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Crewplane build information.",
		},
		[]string{"version"},
	)
)

var registerOnce sync.Once

// Init registers metrics in the default registry.
func Init(version string) {
	registerOnce.Do(func() {
		prometheus.MustRegister(transitionsTotal, auditEntriesTotal, buildInfo)
	})
	buildInfo.WithLabelValues(version).Set(1)
}

// ObserveTransition counts one lifecycle operation attempt.
// Outcome is "ok" or the error kind ("conflict", "forbidden", ...).
func ObserveTransition(entity, operation, outcome string) {
	transitionsTotal.WithLabelValues(entity, operation, outcome).Inc()
}

// ObserveAuditEntry counts one appended audit entry.
func ObserveAuditEntry() {
	auditEntriesTotal.Inc()
}
