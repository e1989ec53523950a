package test

import "sync"

type MockDelivery struct {
	sync.Mutex
	body  []byte
	acks  int
	nacks int
}

func NewMockDelivery(body string) *MockDelivery {
	return &MockDelivery{body: []byte(body)}
}

func (d *MockDelivery) Body() []byte {
	return d.body
}

func (d *MockDelivery) Ack() {
	d.Lock()
	defer d.Unlock()
	d.acks++
}

func (d *MockDelivery) Nack() {
	d.Lock()
	defer d.Unlock()
	d.nacks++
}

func (d *MockDelivery) Acked() bool {
	d.Lock()
	defer d.Unlock()
	return d.acks == 1 && d.nacks == 0
}

func (d *MockDelivery) Nacked() bool {
	d.Lock()
	defer d.Unlock()
	return d.nacks == 1 && d.acks == 0
}
