package test

import (
	"errors"
	"sync"
)

// MockBroker stands in for the supervisor. Turning it back on with
// SetConnected signals a reconnect like the real supervisor does.
type MockBroker struct {
	sync.Mutex
	connected   bool
	failPublish int
	allowance   int
	published   []uint
	reconnected chan struct{}
}

func NewMockBroker(connected bool) *MockBroker {
	return &MockBroker{
		connected:   connected,
		allowance:   -1,
		reconnected: make(chan struct{}, 1),
	}
}

func (m *MockBroker) Publish(id uint) error {
	m.Lock()
	defer m.Unlock()

	if !m.connected {
		return errors.New("kafka: broker is not connected")
	}

	if m.allowance == 0 || m.failPublish > 0 {
		if m.failPublish > 0 {
			m.failPublish--
		}
		m.connected = false
		return errors.New("kafka: client has run out of available brokers to talk to")
	}

	if m.allowance > 0 {
		m.allowance--
	}

	m.published = append(m.published, id)

	return nil
}

func (m *MockBroker) IsConnected() bool {
	m.Lock()
	defer m.Unlock()
	return m.connected
}

func (m *MockBroker) Reconnected() <-chan struct{} {
	return m.reconnected
}

func (m *MockBroker) SetConnected(connected bool) {
	m.Lock()
	was := m.connected
	m.connected = connected
	m.Unlock()

	if connected && !was {
		select {
		case m.reconnected <- struct{}{}:
		default:
		}
	}
}

// FailNextPublishes makes the next n publishes fail and drop the connection.
func (m *MockBroker) FailNextPublishes(n int) {
	m.Lock()
	defer m.Unlock()
	m.failPublish = n
}

// DisconnectAfter lets n more publishes through before the connection drops.
func (m *MockBroker) DisconnectAfter(n int) {
	m.Lock()
	defer m.Unlock()
	m.allowance = n
}

func (m *MockBroker) Published() []uint {
	m.Lock()
	defer m.Unlock()
	return append([]uint(nil), m.published...)
}
