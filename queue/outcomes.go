package queue

import (
	"sync"

	"inviqa/mail-relay/request"
)

// outcomes holds delivery results that could not be written to the store.
type outcomes struct {
	mu   sync.Mutex
	list []request.Outcome
}

func (o *outcomes) push(oc request.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(o.list, oc)
}

func (o *outcomes) takeAll() []request.Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()

	list := o.list
	o.list = nil

	return list
}

func (o *outcomes) restore(list []request.Outcome) {
	if len(list) == 0 {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(append([]request.Outcome(nil), list...), o.list...)
}

func (o *outcomes) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.list)
}
