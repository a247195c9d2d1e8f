package snapshot

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store for tests and local runs.
type Memory struct {
	mu      sync.Mutex
	records map[string]*Record
	now     func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*Record), now: time.Now}
}

func (m *Memory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(rec), nil
}

func (m *Memory) Upsert(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := clone(rec)
	c.UpdatedAt = m.now().UTC()
	m.records[rec.ID] = c
	return nil
}

func (m *Memory) SetStatus(_ context.Context, id string, status Status, errMsg string) error {
	return m.update(id, func(r *Record) {
		r.Status = status
		r.Error = errMsg
	})
}

func (m *Memory) SetDatabaseKey(_ context.Context, id, key string) error {
	return m.update(id, func(r *Record) { r.DatabaseKey = key })
}

func (m *Memory) RecordOutput(_ context.Context, id, name, key string) error {
	return m.update(id, func(r *Record) {
		if r.Outputs == nil {
			r.Outputs = make(map[string]string)
		}
		r.Outputs[name] = key
	})
}

func (m *Memory) update(id string, fn func(r *Record)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	fn(rec)
	rec.UpdatedAt = m.now().UTC()
	return nil
}

func clone(r *Record) *Record {
	c := *r
	if r.Outputs != nil {
		c.Outputs = make(map[string]string, len(r.Outputs))
		for k, v := range r.Outputs {
			c.Outputs[k] = v
		}
	}
	return &c
}
