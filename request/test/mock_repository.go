package test

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"inviqa/mail-relay/request"
	"inviqa/mail-relay/request/data"
)

// MockRepository is an in-memory request store. Connectivity loss is simulated
// with SetUnavailable and FailNextOutcomeWrites.
type MockRepository struct {
	sync.RWMutex
	nextId           uint
	rows             map[uint]*request.Request
	keys             map[string]*request.AuthKey
	outcomes         []request.Outcome
	unavailable      bool
	failOutcomes     int
	returnError      bool
	mockQueueSize    uint
	mockTotalSize    uint
	deletedRowsCount int64
	deleteCallCount  int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		rows: map[uint]*request.Request{},
		keys: map[string]*request.AuthKey{},
	}
}

func (mr *MockRepository) Insert(ctx context.Context, r *request.Request) error {
	mr.Lock()
	defer mr.Unlock()

	if mr.unavailable {
		return data.ErrUnavailable
	}

	mr.nextId++
	r.Id = mr.nextId
	cp := *r
	mr.rows[r.Id] = &cp

	return nil
}

func (mr *MockRepository) Get(ctx context.Context, id uint) (*request.Request, error) {
	mr.RLock()
	defer mr.RUnlock()

	if mr.unavailable {
		return nil, data.ErrUnavailable
	}

	r, ok := mr.rows[id]
	if !ok {
		return nil, request.ErrNotFound
	}
	cp := *r

	return &cp, nil
}

func (mr *MockRepository) SaveOutcome(ctx context.Context, o request.Outcome) error {
	mr.Lock()
	defer mr.Unlock()

	if mr.unavailable {
		return data.ErrUnavailable
	}

	if mr.failOutcomes > 0 {
		mr.failOutcomes--
		return data.ErrUnavailable
	}

	mr.outcomes = append(mr.outcomes, o)
	r, ok := mr.rows[o.Id]
	if !ok {
		return nil
	}

	if !o.Fulfilled.Valid {
		if !r.Fulfilled.Valid {
			r.LastError = o.LastError
		}
		return nil
	}

	if r.Fulfilled.Valid {
		return nil
	}

	r.Fulfilled = o.Fulfilled
	r.LastError = o.LastError

	return nil
}

func (mr *MockRepository) PendingIds(ctx context.Context) ([]uint, error) {
	mr.RLock()
	defer mr.RUnlock()

	if mr.unavailable {
		return nil, data.ErrUnavailable
	}

	var ids []uint
	for id, r := range mr.rows {
		if r.Pending() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

func (mr *MockRepository) ListByReqId(ctx context.Context, keyId uint, reqId string) ([]*request.Status, error) {
	mr.RLock()
	defer mr.RUnlock()

	if mr.unavailable {
		return nil, data.ErrUnavailable
	}

	statuses := []*request.Status{}
	for _, r := range mr.rows {
		if r.KeyId == keyId && r.ReqId == reqId {
			statuses = append(statuses, &request.Status{Id: r.Id, Fulfilled: r.Fulfilled, LastError: r.LastError})
		}
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Id < statuses[j].Id })

	return statuses, nil
}

func (mr *MockRepository) FindKeyByCode(ctx context.Context, code string) (*request.AuthKey, error) {
	mr.RLock()
	defer mr.RUnlock()

	if mr.unavailable {
		return nil, data.ErrUnavailable
	}

	k, ok := mr.keys[code]
	if !ok {
		return nil, request.ErrNotFound
	}

	return k, nil
}

// DeleteFulfilled removes rows fulfilled at or before olderThan. A count set
// with SetDeletedRowsCount takes precedence over the rows held in memory.
func (mr *MockRepository) DeleteFulfilled(ctx context.Context, olderThan time.Time) (int64, error) {
	mr.Lock()
	defer mr.Unlock()
	mr.deleteCallCount++

	if mr.returnError {
		return 0, errors.New("oops")
	}

	if mr.deletedRowsCount > 0 {
		return mr.deletedRowsCount, nil
	}

	var n int64
	for id, r := range mr.rows {
		if r.Fulfilled.Valid && !r.Fulfilled.Time.After(olderThan) {
			delete(mr.rows, id)
			n++
		}
	}

	return n, nil
}

func (mr *MockRepository) GetQueueSize(ctx context.Context) (uint, error) {
	if mr.returnError {
		return 0, errors.New("oops")
	}

	return mr.mockQueueSize, nil
}

func (mr *MockRepository) GetTotalSize(ctx context.Context) (uint, error) {
	if mr.returnError {
		return 0, errors.New("oops")
	}

	return mr.mockTotalSize, nil
}

func (mr *MockRepository) AddKey(k *request.AuthKey) {
	mr.Lock()
	defer mr.Unlock()
	mr.keys[k.Code] = k
}

// AddRequest stores r as is, advancing the id sequence past r.Id.
func (mr *MockRepository) AddRequest(r *request.Request) {
	mr.Lock()
	defer mr.Unlock()
	cp := *r
	mr.rows[r.Id] = &cp
	if r.Id > mr.nextId {
		mr.nextId = r.Id
	}
}

func (mr *MockRepository) AddFulfilled(id uint, at time.Time) {
	mr.AddRequest(&request.Request{Id: id, Fulfilled: sql.NullTime{Time: at, Valid: true}})
}

func (mr *MockRepository) Request(id uint) *request.Request {
	mr.RLock()
	defer mr.RUnlock()
	r, ok := mr.rows[id]
	if !ok {
		return nil
	}
	cp := *r

	return &cp
}

func (mr *MockRepository) Count() int {
	mr.RLock()
	defer mr.RUnlock()
	return len(mr.rows)
}

func (mr *MockRepository) Outcomes() []request.Outcome {
	mr.RLock()
	defer mr.RUnlock()
	return append([]request.Outcome(nil), mr.outcomes...)
}

func (mr *MockRepository) SetUnavailable(unavailable bool) {
	mr.Lock()
	defer mr.Unlock()
	mr.unavailable = unavailable
}

// FailNextOutcomeWrites makes the next n outcome writes report the store as
// unavailable.
func (mr *MockRepository) FailNextOutcomeWrites(n int) {
	mr.Lock()
	defer mr.Unlock()
	mr.failOutcomes = n
}

func (mr *MockRepository) ReturnErrors() {
	mr.returnError = true
}

func (mr *MockRepository) SetQueueSize(size uint) {
	mr.mockQueueSize = size
}

func (mr *MockRepository) SetTotalSize(size uint) {
	mr.mockTotalSize = size
}

func (mr *MockRepository) SetDeletedRowsCount(c int64) {
	mr.deletedRowsCount = c
}

func (mr *MockRepository) DeleteCallCount() int {
	mr.RLock()
	defer mr.RUnlock()
	return mr.deleteCallCount
}
