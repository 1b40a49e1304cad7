// Package store provides billing.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/1024ZettaBytes/servi-hogar-sub002/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	entries     map[billing.CustomerID][]billing.Entry
	idempotency map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		entries:     make(map[billing.CustomerID][]billing.Entry),
		idempotency: make(map[string]bool),
	}
}

// Append adds a single entry. Append-only.
func (m *Memory) Append(_ context.Context, e billing.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(e)
	return nil
}

// AppendBatch adds multiple entries atomically.
func (m *Memory) AppendBatch(_ context.Context, entries []billing.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all idempotency keys first (atomic check)
	for _, e := range entries {
		if e.IdempotencyKey != "" && m.idempotency[e.IdempotencyKey] {
			return billing.ErrDuplicateIdempotencyKey
		}
	}
	for _, e := range entries {
		m.appendLocked(e)
	}
	return nil
}

func (m *Memory) appendLocked(e billing.Entry) {
	entries := m.entries[e.CustomerID]

	// Keep entries ordered by EffectiveAt on insert.
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].EffectiveAt.After(e.EffectiveAt)
	})
	entries = append(entries, billing.Entry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = e
	m.entries[e.CustomerID] = entries

	if e.IdempotencyKey != "" {
		m.idempotency[e.IdempotencyKey] = true
	}
}

func (m *Memory) Load(_ context.Context, customerID billing.CustomerID) ([]billing.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]billing.Entry, len(m.entries[customerID]))
	copy(result, m.entries[customerID])
	return result, nil
}

func (m *Memory) LoadRange(_ context.Context, customerID billing.CustomerID, from, to billing.Date) ([]billing.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []billing.Entry
	for _, e := range m.entries[customerID] {
		if !e.EffectiveAt.Before(from) && !e.EffectiveAt.After(to) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}
