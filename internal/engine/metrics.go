package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Pass outcomes recorded on replicon_passes_total.
const (
	outcomeSkipped    = "skipped"
	outcomeDecomposed = "decomposed"
	outcomeRenewed    = "renewed"
	outcomeFailed     = "failed"
)

// Metrics holds the reconciliation counters.
type Metrics struct {
	Passes          *prometheus.CounterVec
	Events          *prometheus.CounterVec
	Pages           prometheus.Counter
	Applied         *prometheus.CounterVec
	DriftContainers *prometheus.CounterVec
	Messages        *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg. A nil reg
// leaves them unregistered, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replicon_passes_total",
			Help: "Reconciliation passes by outcome.",
		}, []string{"outcome"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replicon_change_events_total",
			Help: "Change events emitted by reconciliation passes.",
		}, []string{"change_type"}),
		Pages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replicon_apply_pages_total",
			Help: "Pages of change events published for apply.",
		}),
		Applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replicon_applied_objects_total",
			Help: "Objects written to or removed from the replica.",
		}, []string{"object_type", "operation"}),
		DriftContainers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replicon_drift_containers_total",
			Help: "Containers examined by drift detection, by result.",
		}, []string{"result"}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replicon_messages_total",
			Help: "Queue messages handled by workers, by topic and result.",
		}, []string{"topic", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Passes, m.Events, m.Pages, m.Applied, m.DriftContainers, m.Messages)
	}
	return m
}
