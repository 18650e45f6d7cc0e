package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"margin-service/internal/margin/model"
)

// Memory — хранилище в памяти процесса (аналог localStorage браузера).
type Memory struct {
	mu      sync.RWMutex
	rows    map[string][]model.Record
	history map[string]model.HistoryState
}

func NewMemory() *Memory {
	return &Memory{
		rows:    make(map[string][]model.Record),
		history: make(map[string]model.HistoryState),
	}
}

func (m *Memory) List(_ context.Context, owner string) ([]model.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.rows[owner]), nil
}

func (m *Memory) Upsert(_ context.Context, owner string, r model.Record) (model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.rows[owner]
	if id, ok := r.PersistedID(); ok {
		if i := slices.IndexFunc(rows, func(x model.Record) bool { return x.ID == id }); i >= 0 {
			rows[i] = r
			return r, nil
		}
	} else {
		r.ID = uuid.NewString()
	}
	r.Origin = model.OriginPersisted
	m.rows[owner] = append(rows, r)
	return r, nil
}

func (m *Memory) Delete(_ context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.rows[owner]
	i := slices.IndexFunc(rows, func(x model.Record) bool { return x.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	m.rows[owner] = slices.Delete(rows, i, i+1)
	return nil
}

func (m *Memory) ClearAll(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, owner)
	return nil
}

func (m *Memory) LoadHistory(_ context.Context, owner string) (model.HistoryState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := m.history[owner]
	h.Points = slices.Clone(h.Points)
	return h, nil
}

func (m *Memory) SaveHistory(_ context.Context, owner string, state model.HistoryState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state.Points = slices.Clone(state.Points)
	m.history[owner] = state
	return nil
}

func (m *Memory) Close() error { return nil }
