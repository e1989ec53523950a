package prometheus

import (
	"context"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	overflowBuffered prom.Gauge
	unackedOutcomes  prom.Gauge
	brokerConnected  prom.Gauge
	storeConnected   prom.Gauge
)

type bufferSizer interface {
	OverflowLen() int
	UnackedLen() int
}

type connectivity interface {
	IsConnected() bool
}

func init() {
	overflowBuffered = promauto.NewGauge(prom.GaugeOpts{
		Name: "mail_relay_overflow_buffered",
		Help: "The number of request ids waiting in memory for the broker to come back",
	})
	unackedOutcomes = promauto.NewGauge(prom.GaugeOpts{
		Name: "mail_relay_unacknowledged_outcomes",
		Help: "The number of delivery outcomes waiting in memory for the store to come back",
	})
	brokerConnected = promauto.NewGauge(prom.GaugeOpts{
		Name: "mail_relay_broker_connected",
		Help: "1 when the broker is reachable, 0 otherwise",
	})
	storeConnected = promauto.NewGauge(prom.GaugeOpts{
		Name: "mail_relay_store_connected",
		Help: "1 when the store answered the last statement, 0 otherwise",
	})
}

// ObserveBuffers samples the in-memory buffers and the connectivity flags
// until ctx is cancelled.
func ObserveBuffers(ctx context.Context, b bufferSizer, broker, store connectivity) {
	for {
		overflowBuffered.Set(float64(b.OverflowLen()))
		unackedOutcomes.Set(float64(b.UnackedLen()))
		brokerConnected.Set(boolToFloat(broker.IsConnected()))
		storeConnected.Set(boolToFloat(store.IsConnected()))

		if !sleep(ctx, observeInterval) {
			return
		}
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
