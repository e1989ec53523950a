package job

import (
	"context"
	"net/http"
	"time"

	"inviqa/mail-relay/config"
	"inviqa/mail-relay/log"
)

const CleanupInterval = time.Hour * 24

type FulfilledDeleter interface {
	DeleteFulfilled(ctx context.Context, olderThan time.Time) (int64, error)
}

type cleanup struct {
	fd      FulfilledDeleter
	horizon func(now time.Time) time.Time
	now     func() time.Time
	SidecarQuitter
}

// RunCleanup deletes expired requests once and returns the process exit code.
func RunCleanup(ctx context.Context, repo FulfilledDeleter, cfg *config.Config) int {
	j := newCleanupWithDefaultClient(repo, cfg)
	if cfg.SidecarProxyUrl != "" {
		j.EnableSideCarProxyQuit(cfg.SidecarProxyUrl)
	}

	if _, err := j.Execute(ctx); err != nil {
		return 1
	}

	return 0
}

// StartCleanup deletes expired requests on every interval until ctx is
// cancelled. Failures are logged and retried on the next run.
func StartCleanup(ctx context.Context, repo FulfilledDeleter, cfg *config.Config, interval time.Duration) {
	j := newCleanupWithDefaultClient(repo, cfg)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = j.Execute(ctx)
		}
	}
}

func newCleanupWithDefaultClient(fd FulfilledDeleter, cfg *config.Config) *cleanup {
	return newCleanup(fd, cfg, http.DefaultClient)
}

func newCleanup(fd FulfilledDeleter, cfg *config.Config, cl httpPoster) *cleanup {
	return &cleanup{
		fd:      fd,
		horizon: cfg.GetRetentionHorizon,
		now:     time.Now,
		SidecarQuitter: SidecarQuitter{
			Client: cl,
		},
	}
}

func (c *cleanup) Execute(ctx context.Context) (int64, error) {
	olderThan := c.horizon(c.now())

	rows, err := c.fd.DeleteFulfilled(ctx, olderThan)
	if err != nil {
		log.Logger.WithError(err).Error("an error occurred whilst deleting fulfilled requests")
		return 0, err
	}

	log.Logger.WithField("olderThan", olderThan).Infof("deleted %d fulfilled requests", rows)

	if c.QuitSidecar {
		if err := c.Quit(); err != nil {
			return 0, err
		}
	}

	return rows, nil
}
