package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeDelivered   = "delivered"
	OutcomeTransient   = "transient"
	OutcomePermanent   = "permanent"
	OutcomeMissing     = "missing"
	OutcomeUnavailable = "unavailable"
	OutcomePanic       = "panic"
	OutcomeResolved    = "resolved"
)

var deliveryOutcomes *prom.CounterVec

func init() {
	deliveryOutcomes = promauto.NewCounterVec(prom.CounterOpts{
		Name: "mail_relay_delivery_outcomes_total",
		Help: "The number of consumed request ids by how their delivery attempt ended",
	}, []string{"outcome"})
}

func RecordOutcome(outcome string) {
	deliveryOutcomes.WithLabelValues(outcome).Inc()
}
