package prometheus

import (
	"context"
	"time"

	"inviqa/mail-relay/log"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const observeInterval = time.Second * 1

var totalRequests prom.Gauge

type totalSizer interface {
	GetTotalSize(ctx context.Context) (uint, error)
}

func init() {
	totalRequests = promauto.NewGauge(prom.GaugeOpts{
		Name: "mail_relay_total_requests",
		Help: "The number of requests held in the store, fulfilled or not",
	})
}

func ObserveTotalSize(repo totalSizer, ctx context.Context) {
	for {
		size, err := repo.GetTotalSize(ctx)
		if err != nil {
			log.Logger.WithError(err).Error("an error occurred determining the total number of requests")
		} else {
			totalRequests.Set(float64(size))
		}

		if !sleep(ctx, observeInterval) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
