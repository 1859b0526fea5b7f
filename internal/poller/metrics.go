package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "duff"
	metricsSubsystem = "repository"

	labelID   = "id"
	labelName = "name"
)

type metrics struct {
	hasChanges    *prometheus.GaugeVec
	modifiedFiles *prometheus.GaugeVec
	failures      *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		hasChanges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "has_changes",
			Help:      "Whether the working copy has uncommitted changes (1) or not (0).",
		}, []string{labelID, labelName}),
		modifiedFiles: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "modified_files",
			Help:      "Number of modified files in the working copy.",
		}, []string{labelID, labelName}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "poll_failures_total",
			Help:      "Number of failed status polls.",
		}, []string{labelID, labelName}),
	}
}

func (m *metrics) observe(id, name string, hasChanges bool, modified int) {
	v := 0.0
	if hasChanges {
		v = 1
	}

	m.hasChanges.WithLabelValues(id, name).Set(v)
	m.modifiedFiles.WithLabelValues(id, name).Set(float64(modified))
}

func (m *metrics) fail(id, name string) {
	m.failures.WithLabelValues(id, name).Inc()
}

func (m *metrics) forget(id, name string) {
	m.hasChanges.DeleteLabelValues(id, name)
	m.modifiedFiles.DeleteLabelValues(id, name)
	m.failures.DeleteLabelValues(id, name)
}
