package queue

import "sync"

// overflow holds ids that were persisted but not yet published, oldest first.
// An id is held at most once.
type overflow struct {
	mu  sync.Mutex
	ids []uint
	set map[uint]struct{}
}

func newOverflow() *overflow {
	return &overflow{set: map[uint]struct{}{}}
}

func (o *overflow) push(id uint) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.set[id]; ok {
		return
	}
	o.set[id] = struct{}{}
	o.ids = append(o.ids, id)
}

// takeAll empties the buffer and returns its content in FIFO order.
func (o *overflow) takeAll() []uint {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := o.ids
	o.ids = nil
	o.set = map[uint]struct{}{}

	return ids
}

// restore puts ids back in front of anything buffered since they were taken.
func (o *overflow) restore(ids []uint) {
	o.mu.Lock()
	defer o.mu.Unlock()

	merged := make([]uint, 0, len(ids)+len(o.ids))
	set := make(map[uint]struct{}, len(ids)+len(o.ids))
	for _, id := range append(append([]uint(nil), ids...), o.ids...) {
		if _, ok := set[id]; ok {
			continue
		}
		set[id] = struct{}{}
		merged = append(merged, id)
	}

	o.ids, o.set = merged, set
}

func (o *overflow) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.ids)
}
