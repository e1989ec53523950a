package kafka

import (
	"context"
	"sync"
	"time"

	"inviqa/mail-relay/log"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
)

const (
	nackMetadata = "nack"
	retryDelay   = 5 * time.Second
)

// Delivery is one message handed to a MessageHandler. Exactly one of Ack or
// Nack must be called. Neither requeues the message.
type Delivery interface {
	Body() []byte
	Ack()
	Nack()
}

type MessageHandler interface {
	HandleDelivery(ctx context.Context, d Delivery)
}

type delivery struct {
	session sarama.ConsumerGroupSession
	msg     *sarama.ConsumerMessage
}

func (d delivery) Body() []byte {
	return d.msg.Value
}

func (d delivery) Ack() {
	d.session.MarkMessage(d.msg, "")
}

func (d delivery) Nack() {
	d.session.MarkMessage(d.msg, nackMetadata)
}

// Consumer reads request ids from the topic and runs at most prefetch
// handlers at the same time.
type Consumer struct {
	topic    string
	handler  MessageHandler
	prefetch int
	newGroup func() (sarama.ConsumerGroup, error)
}

func NewConsumer(kafkaHosts []string, groupId, topic string, cfg *sarama.Config, h MessageHandler) *Consumer {
	return NewConsumerWithGroupFactory(topic, cfg.ChannelBufferSize, h, func() (sarama.ConsumerGroup, error) {
		return sarama.NewConsumerGroup(kafkaHosts, groupId, cfg)
	})
}

func NewConsumerWithGroupFactory(topic string, prefetch int, h MessageHandler, f func() (sarama.ConsumerGroup, error)) *Consumer {
	if prefetch < 1 {
		prefetch = 1
	}

	return &Consumer{
		topic:    topic,
		handler:  h,
		prefetch: prefetch,
		newGroup: f,
	}
}

// Consume blocks until ctx is cancelled. While the broker is unreachable it
// keeps retrying, so consumption simply pauses.
func (c *Consumer) Consume(ctx context.Context) {
	var group sarama.ConsumerGroup
	for group == nil {
		g, err := c.newGroup()
		if err != nil {
			log.Logger.WithError(err).Warn("could not create Kafka consumer group, retrying")
			if !sleep(ctx, retryDelay) {
				return
			}
			continue
		}
		group = g
	}

	defer func() {
		if err := group.Close(); err != nil {
			log.Logger.WithError(err).Error("error closing kafka consumer group during shutdown")
		}
	}()

	go func() {
		for err := range group.Errors() {
			log.Logger.WithError(err).Error("Kafka consumer group error")
		}
	}()

	gh := &groupHandler{handler: c.handler, sem: make(chan struct{}, c.prefetch)}
	for {
		err := group.Consume(ctx, []string{c.topic}, gh)
		if ctx.Err() != nil || errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return
		}

		if err != nil {
			log.Logger.WithError(err).Warn("Kafka consume loop error, retrying")
			if !sleep(ctx, retryDelay) {
				return
			}
		}
	}
}

type groupHandler struct {
	handler MessageHandler
	sem     chan struct{}
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim waits for every handler it started before returning, so no
// offset is marked after the session ends.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for msg := range claim.Messages() {
		h.sem <- struct{}{}
		wg.Add(1)
		go func(m *sarama.ConsumerMessage) {
			defer func() {
				<-h.sem
				wg.Done()
			}()
			h.handler.HandleDelivery(session.Context(), delivery{session: session, msg: m})
		}(msg)
	}

	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
