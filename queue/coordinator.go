package queue

import (
	"context"
	"database/sql"
	"time"

	"inviqa/mail-relay/log"
	nr "inviqa/mail-relay/newrelic"
	"inviqa/mail-relay/request"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const requeueInterval = time.Hour

var ErrInvalidMessage = errors.New("queue: exactly one of text or html must be set")

type repository interface {
	Insert(ctx context.Context, r *request.Request) error
	Get(ctx context.Context, id uint) (*request.Request, error)
	SaveOutcome(ctx context.Context, o request.Outcome) error
	PendingIds(ctx context.Context) ([]uint, error)
	ListByReqId(ctx context.Context, keyId uint, reqId string) ([]*request.Status, error)
}

type broker interface {
	Publish(id uint) error
	IsConnected() bool
	Reconnected() <-chan struct{}
}

type transport interface {
	Send(r *request.Request) error
}

// Mail is the content of a submission for a single recipient. ReplyTo is a
// comma separated address list.
type Mail struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
	Html    string
}

func (m Mail) validate() error {
	if (m.Text == "") == (m.Html == "") {
		return ErrInvalidMessage
	}

	return nil
}

// Coordinator persists submissions, hands their ids to the broker and turns
// consumed ids into delivery attempts. Work that cannot reach the broker or
// the store is held in memory until the next reconnect or requeue sweep.
type Coordinator struct {
	repo      repository
	broker    broker
	transport transport
	nrApp     *newrelic.Application

	overflow *overflow
	unacked  *outcomes

	requeueInterval time.Duration
	now             func() time.Time
}

func New(repo repository, b broker, t transport, nrApp *newrelic.Application) *Coordinator {
	return &Coordinator{
		repo:            repo,
		broker:          b,
		transport:       t,
		nrApp:           nrApp,
		overflow:        newOverflow(),
		unacked:         &outcomes{},
		requeueInterval: requeueInterval,
		now:             time.Now,
	}
}

// Submit persists m for one recipient and queues its id. An empty reqId is
// replaced with a generated one. When the store is unavailable nothing is
// queued and the error is returned.
func (c *Coordinator) Submit(ctx context.Context, keyId uint, m Mail, reqId string) (*request.Request, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	if reqId == "" {
		reqId = uuid.New().String()
	}

	ctx, txn := nr.ContextWithTxn(ctx, "submit-request", c.nrApp)
	defer txn.End()

	r := &request.Request{
		KeyId:       keyId,
		ReqId:       reqId,
		MailFrom:    m.From,
		MailTo:      m.To,
		MailReplyTo: nullString(m.ReplyTo),
		MailSubject: m.Subject,
		MailText:    nullString(m.Text),
		MailHtml:    nullString(m.Html),
	}

	if err := c.repo.Insert(ctx, r); err != nil {
		txn.NoticeError(err)
		return nil, err
	}

	c.enqueue(r.Id)

	return r, nil
}

func (c *Coordinator) LookupStatus(ctx context.Context, keyId uint, reqId string) ([]*request.Status, error) {
	return c.repo.ListByReqId(ctx, keyId, reqId)
}

func (c *Coordinator) OverflowLen() int {
	return c.overflow.len()
}

func (c *Coordinator) UnackedLen() int {
	return c.unacked.len()
}

// enqueue publishes id, falling back to the overflow buffer. It never fails.
func (c *Coordinator) enqueue(id uint) {
	if c.broker.IsConnected() {
		err := c.broker.Publish(id)
		if err == nil {
			return
		}
		log.Logger.WithError(err).WithField("id", id).Warn("publishing failed, buffering request")
	}

	c.overflow.push(id)

	// the broker may have reconnected between the check and the push, in
	// which case the reconnect drain has already run without this id
	if c.broker.IsConnected() {
		c.DrainOverflow()
	}
}

// DrainOverflow publishes every buffered id, oldest first. On the first
// failure the unpublished ids go back to the front of the buffer.
func (c *Coordinator) DrainOverflow() {
	ids := c.overflow.takeAll()
	if len(ids) == 0 {
		return
	}

	for i, id := range ids {
		if err := c.broker.Publish(id); err != nil {
			c.overflow.restore(ids[i:])
			log.Logger.WithError(err).WithFields(logrus.Fields{
				"published": i,
				"remaining": len(ids) - i,
			}).Warn("draining the overflow buffer stopped early")
			return
		}
	}

	log.Logger.WithField("published", len(ids)).Info("drained the overflow buffer")
}

// Run drains the overflow buffer on every reconnect and sweeps for failed
// requests on a fixed schedule, starting with one sweep straight away.
func (c *Coordinator) Run(ctx context.Context) {
	c.RequeueFailed(ctx)

	ticker := time.NewTicker(c.requeueInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.broker.Reconnected():
			c.DrainOverflow()
		case <-ticker.C:
			c.RequeueFailed(ctx)
		}
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
