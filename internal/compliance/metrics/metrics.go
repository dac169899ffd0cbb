package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	DecisionsAllowed prometheus.Counter
	DecisionsDenied  *prometheus.CounterVec
	RecordedVolume   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		DecisionsAllowed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetgate_compliance_decisions_allowed_total",
			Help: "Total number of transfer checks that were allowed",
		}),
		DecisionsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assetgate_compliance_decisions_denied_total",
			Help: "Total number of transfer checks that were denied, by reason",
		}, []string{"reason"}),
		RecordedVolume: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetgate_compliance_recorded_volume_total",
			Help: "Total transfer volume recorded against daily quotas",
		}),
	}
}

func (m *Metrics) ObserveAllowed() {
	m.DecisionsAllowed.Inc()
}

func (m *Metrics) ObserveDenied(reason string) {
	m.DecisionsDenied.WithLabelValues(reason).Inc()
}

func (m *Metrics) AddRecordedVolume(amount int64) {
	m.RecordedVolume.Add(float64(amount))
}
