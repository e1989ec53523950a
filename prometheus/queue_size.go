package prometheus

import (
	"context"

	"inviqa/mail-relay/log"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pendingRequests prom.Gauge

type queueSizer interface {
	GetQueueSize(ctx context.Context) (uint, error)
}

func init() {
	pendingRequests = promauto.NewGauge(prom.GaugeOpts{
		Name: "mail_relay_pending_requests",
		Help: "The number of requests that have not been fulfilled yet",
	})
}

func ObserveQueueSize(sizer queueSizer, ctx context.Context) {
	for {
		size, err := sizer.GetQueueSize(ctx)
		if err != nil {
			log.Logger.WithError(err).Error("an error occurred determining the number of pending requests")
		} else {
			pendingRequests.Set(float64(size))
		}

		if !sleep(ctx, observeInterval) {
			return
		}
	}
}
