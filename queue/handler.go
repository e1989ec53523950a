package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"inviqa/mail-relay/kafka"
	"inviqa/mail-relay/log"
	"inviqa/mail-relay/mail"
	nr "inviqa/mail-relay/newrelic"
	"inviqa/mail-relay/prometheus"
	"inviqa/mail-relay/request"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// HandleDelivery makes one delivery attempt for the request id carried by d.
// Every path settles d exactly once and none of them requeue it: redelivery
// is left to the requeue sweep.
func (c *Coordinator) HandleDelivery(ctx context.Context, d kafka.Delivery) {
	ctx, txn := nr.ContextWithTxn(ctx, "deliver-request", c.nrApp)
	defer txn.End()

	defer func() {
		if r := recover(); r != nil {
			log.Logger.WithField("panic", r).Error("recovered from a panic while handling a delivery")
			txn.NoticeError(fmt.Errorf("panic: %v", r))
			prometheus.RecordOutcome(prometheus.OutcomePanic)
			d.Nack()
		}
	}()

	id, err := strconv.ParseUint(strings.TrimSpace(string(d.Body())), 10, 64)
	if err != nil {
		log.Logger.WithError(err).WithField("body", string(d.Body())).Error("received a message that is not a request id")
		prometheus.RecordOutcome(prometheus.OutcomeMissing)
		d.Nack()
		return
	}

	logger := log.Logger.WithField("id", id)
	txn.AddAttribute("requestId", id)

	r, err := c.repo.Get(ctx, uint(id))
	switch {
	case errors.Is(err, request.ErrNotFound):
		logger.Error("no request exists for the consumed id, dropping it")
		prometheus.RecordOutcome(prometheus.OutcomeMissing)
		d.Nack()
		return
	case err != nil:
		logger.WithError(err).Warn("could not load the request, leaving it for the requeue sweep")
		prometheus.RecordOutcome(prometheus.OutcomeUnavailable)
		d.Nack()
		return
	}

	if !r.Pending() {
		logger.Info("request is already resolved, dropping the stale copy")
		prometheus.RecordOutcome(prometheus.OutcomeResolved)
		d.Ack()
		return
	}

	seg := nr.StartSegment(ctx, "smtp-send")
	sendErr := c.transport.Send(r)
	seg.End()

	var o request.Outcome
	switch {
	case sendErr == nil:
		o = request.DeliveredOutcome(r.Id, c.now())
		prometheus.RecordOutcome(prometheus.OutcomeDelivered)
	case mail.IsTransient(sendErr):
		o = request.TransientOutcome(r.Id, sendErr.Error())
		logger.WithError(sendErr).Warn("transient delivery failure")
		prometheus.RecordOutcome(prometheus.OutcomeTransient)
	default:
		o = request.FailedOutcome(r.Id, c.now(), sendErr.Error())
		logger.WithError(sendErr).Info("permanent delivery failure")
		prometheus.RecordOutcome(prometheus.OutcomePermanent)
	}

	saveErr := c.repo.SaveOutcome(ctx, o)
	if saveErr != nil {
		logger.WithError(saveErr).WithFields(logrus.Fields{
			"fulfilled": o.Fulfilled.Valid,
			"lasterror": o.LastError.String,
		}).Warn("could not save the delivery outcome, buffering it")
		txn.NoticeError(saveErr)
		c.unacked.push(o)
	}

	if sendErr == nil && saveErr == nil {
		d.Ack()
		return
	}

	d.Nack()
}
