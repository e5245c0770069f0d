package table

import "sync"

// Memory is an in-process Store. Tables are deep-copied on load and save.
type Memory struct {
	mu    sync.Mutex
	table *Table
	saves int

	// SaveErr, when set, is returned by Save without storing anything.
	SaveErr error
}

// NewMemory returns a store seeded with t, or an empty store when t is nil.
func NewMemory(t *Table) *Memory {
	m := &Memory{}
	if t != nil {
		m.table = t.Clone()
	}
	return m
}

// Load returns a copy of the stored table or ErrNotExist.
func (m *Memory) Load() (*Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.table == nil {
		return nil, ErrNotExist
	}
	return m.table.Clone(), nil
}

// Save stores a copy of t.
func (m *Memory) Save(t *Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.table = t.Clone()
	m.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
