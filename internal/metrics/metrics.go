package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the ledger service collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	ledgerMutations       *prometheus.CounterVec
	corruptRecoveries     *prometheus.CounterVec
	predictions           *prometheus.CounterVec
	blockchainSubmissions *prometheus.CounterVec
}

// New registers the collectors on registerer (the default registerer when nil).
func New(registerer prometheus.Registerer, serviceName string) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		serviceName = "ledger-backend"
	}
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		ledgerMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ledger_mutations_total",
			Help:        "Ledger read-modify-write cycles by collection and operation.",
			ConstLabels: constLabels,
		}, []string{"collection", "op"}),
		corruptRecoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ledger_corrupt_recoveries_total",
			Help:        "Persisted collections discarded because they could not be decoded.",
			ConstLabels: constLabels,
		}, []string{"collection"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "credit_predictions_total",
			Help:        "Credit growth predictions by source.",
			ConstLabels: constLabels,
		}, []string{"source"}),
		blockchainSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "blockchain_submissions_total",
			Help:        "Simulated blockchain submissions by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
	}

	registerer.MustRegister(m.ledgerMutations, m.corruptRecoveries, m.predictions, m.blockchainSubmissions)
	return m
}

func (m *Metrics) LedgerMutation(collection, op string) {
	if m == nil {
		return
	}
	m.ledgerMutations.WithLabelValues(collection, op).Inc()
}

func (m *Metrics) CorruptRecovery(collection string) {
	if m == nil {
		return
	}
	m.corruptRecoveries.WithLabelValues(collection).Inc()
}

func (m *Metrics) Prediction(source string) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(source).Inc()
}

func (m *Metrics) BlockchainSubmission(outcome string) {
	if m == nil {
		return
	}
	m.blockchainSubmissions.WithLabelValues(outcome).Inc()
}
