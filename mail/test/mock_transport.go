package test

import (
	"sync"

	"inviqa/mail-relay/mail"
	"inviqa/mail-relay/request"
)

// MockTransport records sent requests and returns queued errors in order.
// Once the queue is empty every send succeeds.
type MockTransport struct {
	sync.Mutex
	sent    []*request.Request
	errs    []error
	panicOn uint
}

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) Send(r *request.Request) error {
	m.Lock()
	defer m.Unlock()

	if m.panicOn != 0 && r.Id == m.panicOn {
		panic("mock transport panic")
	}

	m.sent = append(m.sent, r)
	if len(m.errs) == 0 {
		return nil
	}

	var err error
	err, m.errs = m.errs[0], m.errs[1:]

	return err
}

func (m *MockTransport) FailTransiently(reason error) {
	m.Lock()
	defer m.Unlock()
	m.errs = append(m.errs, &mail.DeliveryError{Transient: true, Err: reason})
}

func (m *MockTransport) FailPermanently(reason error) {
	m.Lock()
	defer m.Unlock()
	m.errs = append(m.errs, &mail.DeliveryError{Err: reason})
}

func (m *MockTransport) PanicOn(id uint) {
	m.Lock()
	defer m.Unlock()
	m.panicOn = id
}

func (m *MockTransport) Sent() []*request.Request {
	m.Lock()
	defer m.Unlock()
	return append([]*request.Request(nil), m.sent...)
}
