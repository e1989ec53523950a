package queue

import (
	"context"

	"inviqa/mail-relay/log"
	nr "inviqa/mail-relay/newrelic"
	"inviqa/mail-relay/request"

	"github.com/sirupsen/logrus"
)

// RequeueFailed replays the outcomes that could not be saved, then queues
// every request that is still pending. It doubles as crash recovery for ids
// that were persisted but never published, and it empties an overflow buffer
// that a missed reconnect signal left behind.
func (c *Coordinator) RequeueFailed(ctx context.Context) {
	ctx, txn := nr.ContextWithTxn(ctx, "requeue-failed", c.nrApp)
	defer txn.End()

	replayed, kept := c.replayOutcomes(ctx)

	// buffered ids are pending rows too, so the sweep below covers them
	absorbed := c.overflow.takeAll()

	ids, err := c.repo.PendingIds(ctx)
	if err != nil {
		c.overflow.restore(absorbed)
		if c.broker.IsConnected() {
			c.DrainOverflow()
		}
		log.Logger.WithError(err).Warn("could not fetch pending requests, retrying on the next sweep")
		txn.NoticeError(err)
		return
	}

	for _, id := range ids {
		c.enqueue(id)
	}

	if replayed+kept+len(ids)+len(absorbed) == 0 {
		return
	}

	log.Logger.WithFields(logrus.Fields{
		"replayed": replayed,
		"buffered": kept,
		"absorbed": len(absorbed),
		"requeued": len(ids),
	}).Info("requeue sweep finished")
}

// replayOutcomes retries every buffered outcome write and keeps the ones
// that still fail.
func (c *Coordinator) replayOutcomes(ctx context.Context) (replayed int, kept int) {
	pending := c.unacked.takeAll()

	var failed []request.Outcome
	for _, o := range pending {
		if err := c.repo.SaveOutcome(ctx, o); err != nil {
			failed = append(failed, o)
			continue
		}
		replayed++
	}

	c.unacked.restore(failed)

	return replayed, len(failed)
}
