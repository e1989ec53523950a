package kafka

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"inviqa/mail-relay/log"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const probeInterval = 5 * time.Second

var ErrNotConnected = errors.New("kafka: broker is not connected")

// BrokerClient is the part of sarama.Client the supervisor probes with.
type BrokerClient interface {
	RefreshMetadata(topics ...string) error
	Close() error
}

// Dialer opens a broker connection and a producer bound to it.
type Dialer func() (BrokerClient, sarama.SyncProducer, error)

// Supervisor owns the connection used to publish request ids. It connects
// lazily, probes the broker on a fixed interval and signals every transition
// back to connected on the Reconnected channel.
type Supervisor struct {
	topic    string
	dial     Dialer
	interval time.Duration

	mu       sync.Mutex
	client   BrokerClient
	producer sarama.SyncProducer

	connected   atomic.Bool
	reconnected chan struct{}
}

func NewSupervisor(kafkaHosts []string, topic string, replicationFactor int16, cfg *sarama.Config) *Supervisor {
	return NewSupervisorWithDialer(topic, func() (BrokerClient, sarama.SyncProducer, error) {
		return dial(kafkaHosts, topic, replicationFactor, cfg)
	})
}

func NewSupervisorWithDialer(topic string, d Dialer) *Supervisor {
	return &Supervisor{
		topic:       topic,
		dial:        d,
		interval:    probeInterval,
		reconnected: make(chan struct{}, 1),
	}
}

func (s *Supervisor) IsConnected() bool {
	return s.connected.Load()
}

// Reconnected receives a value after the broker becomes reachable again.
// Signals are coalesced while nobody is receiving.
func (s *Supervisor) Reconnected() <-chan struct{} {
	return s.reconnected
}

// Publish sends the decimal id to the durable topic.
func (s *Supervisor) Publish(id uint) error {
	s.mu.Lock()
	producer := s.producer
	s.mu.Unlock()

	if producer == nil {
		return ErrNotConnected
	}

	v := strconv.FormatUint(uint64(id), 10)
	partition, offset, err := producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(v),
		Value: sarama.StringEncoder(v),
	})
	if err != nil {
		s.setConnected(false)
		return errors.Wrapf(err, "kafka: error publishing request %d", id)
	}

	s.setConnected(true)
	log.Logger.Debugf("published request %d in Kafka (topic: %s, partition: %d, offset: %d)", id, s.topic, partition, offset)

	return nil
}

// Run keeps the connection alive until ctx is cancelled and closes it on the
// way out.
func (s *Supervisor) Run(ctx context.Context) {
	s.Check()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-ticker.C:
			s.Check()
		}
	}
}

// Check connects if there is no connection yet, otherwise refreshes the topic
// metadata to find out whether the broker is still reachable.
func (s *Supervisor) Check() {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client == nil {
		c, p, err := s.dial()
		if err != nil {
			log.Logger.WithError(err).Warn("could not connect to Kafka")
			s.setConnected(false)
			return
		}

		s.mu.Lock()
		s.client, s.producer = c, p
		s.mu.Unlock()
		s.setConnected(true)
		return
	}

	if err := client.RefreshMetadata(s.topic); err != nil {
		log.Logger.WithError(err).Debug("Kafka metadata refresh failed")
		s.setConnected(false)
		return
	}

	s.setConnected(true)
}

func (s *Supervisor) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.producer != nil {
		if err := s.producer.Close(); err != nil {
			log.Logger.WithError(err).Error("error closing kafka producer during shutdown")
		}
	}

	if s.client != nil {
		if err := s.client.Close(); err != nil && !errors.Is(err, sarama.ErrClosedClient) {
			log.Logger.WithError(err).Error("error closing kafka client during shutdown")
		}
	}

	s.client, s.producer = nil, nil
	s.connected.Store(false)
}

func (s *Supervisor) setConnected(connected bool) {
	if was := s.connected.Swap(connected); was == connected {
		return
	}

	log.Logger.WithFields(logrus.Fields{"connected": connected, "topic": s.topic}).Warn("Kafka connectivity changed")

	if connected {
		select {
		case s.reconnected <- struct{}{}:
		default:
		}
	}
}

func dial(kafkaHosts []string, topic string, replicationFactor int16, cfg *sarama.Config) (BrokerClient, sarama.SyncProducer, error) {
	client, err := sarama.NewClient(kafkaHosts, cfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "kafka: could not create client")
	}

	if err := ensureTopic(client, topic, replicationFactor); err != nil {
		client.Close()
		return nil, nil, err
	}

	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, nil, errors.Wrap(err, "kafka: could not start producer")
	}

	return client, producer, nil
}

// ensureTopic declares the durable topic. The admin shares the client, so it
// must not be closed.
func ensureTopic(client sarama.Client, topic string, replicationFactor int16) error {
	admin, err := sarama.NewClusterAdminFromClient(client)
	if err != nil {
		return errors.Wrap(err, "kafka: could not create cluster admin")
	}

	err = admin.CreateTopic(topic, &sarama.TopicDetail{
		NumPartitions:     1,
		ReplicationFactor: replicationFactor,
	}, false)

	var topicErr *sarama.TopicError
	if errors.As(err, &topicErr) && topicErr.Err == sarama.ErrTopicAlreadyExists {
		return nil
	}

	return errors.Wrapf(err, "kafka: could not create topic %s", topic)
}
