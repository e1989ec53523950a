package test

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Shopify/sarama"
	"github.com/go-test/deep"
)

type mockSyncProducer struct {
	sync.Mutex
	producedMessages map[string][]*sarama.ProducerMessage
	returnError      bool
	closed           bool
}

func NewMockSyncProducer() *mockSyncProducer {
	return &mockSyncProducer{
		producedMessages: map[string][]*sarama.ProducerMessage{},
	}
}

func (m *mockSyncProducer) MessageWasProduced(topic string, exp *sarama.ProducerMessage) error {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.producedMessages[topic]; !ok {
		return fmt.Errorf("0 messages produced for the %s topic", topic)
	}

	for _, msg := range m.producedMessages[topic] {
		if diff := deep.Equal(exp, msg); diff == nil {
			return nil
		}
	}
	return fmt.Errorf("no message published in topic %s that matches provided message %#v", topic, exp)
}

func (m *mockSyncProducer) ProducedCount(topic string) int {
	m.Lock()
	defer m.Unlock()
	return len(m.producedMessages[topic])
}

func (m *mockSyncProducer) SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	m.Lock()
	defer m.Unlock()

	if m.returnError {
		return 0, 0, errors.New("kafka: client has run out of available brokers to talk to")
	}

	m.producedMessages[msg.Topic] = append(m.producedMessages[msg.Topic], msg)

	return 0, int64(len(m.producedMessages[msg.Topic]) - 1), nil
}

func (m *mockSyncProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	return nil
}

func (m *mockSyncProducer) Close() error {
	m.Lock()
	defer m.Unlock()
	m.closed = true
	return nil
}

func (m *mockSyncProducer) ReturnErrors(returnError bool) {
	m.Lock()
	defer m.Unlock()
	m.returnError = returnError
}

func (m *mockSyncProducer) Closed() bool {
	m.Lock()
	defer m.Unlock()
	return m.closed
}
