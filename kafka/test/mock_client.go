package test

import (
	"errors"
	"sync"
)

type MockClient struct {
	sync.Mutex
	refreshCount int
	returnError  bool
	closed       bool
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) RefreshMetadata(topics ...string) error {
	m.Lock()
	defer m.Unlock()
	m.refreshCount++

	if m.returnError {
		return errors.New("kafka: client has run out of available brokers to talk to")
	}

	return nil
}

func (m *MockClient) Close() error {
	m.Lock()
	defer m.Unlock()
	m.closed = true
	return nil
}

func (m *MockClient) ReturnErrors(returnError bool) {
	m.Lock()
	defer m.Unlock()
	m.returnError = returnError
}

func (m *MockClient) RefreshCount() int {
	m.Lock()
	defer m.Unlock()
	return m.refreshCount
}

func (m *MockClient) Closed() bool {
	m.Lock()
	defer m.Unlock()
	return m.closed
}
