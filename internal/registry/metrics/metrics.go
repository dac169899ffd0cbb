package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	VerificationsTotal prometheus.Counter
	RevocationsTotal   prometheus.Counter
	VerifiedAccounts   prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		VerificationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetgate_registry_verifications_total",
			Help: "Total number of account verifications applied",
		}),
		RevocationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetgate_registry_revocations_total",
			Help: "Total number of account revocations applied",
		}),
		VerifiedAccounts: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "assetgate_registry_verified_accounts",
			Help: "Current number of verified accounts",
		}),
	}
}

func (m *Metrics) IncrementVerifications() {
	m.VerificationsTotal.Inc()
}

func (m *Metrics) IncrementRevocations() {
	m.RevocationsTotal.Inc()
}

func (m *Metrics) SetVerifiedAccounts(count int64) {
	m.VerifiedAccounts.Set(float64(count))
}
