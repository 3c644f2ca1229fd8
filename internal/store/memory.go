// Package store holds write-through persistence adapters for the ledger.
package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/kiwari-pos/floor/internal/ledger"
)

// Memory keeps orders in process memory. Used by tests and single-node dev.
type Memory struct {
	mu     sync.Mutex
	orders map[int64]ledger.Order
}

// NewMemory creates a Memory store pre-filled with seed.
func NewMemory(seed ...ledger.Order) *Memory {
	m := &Memory{orders: make(map[int64]ledger.Order, len(seed))}
	for _, o := range seed {
		m.orders[o.ID] = *o.Clone()
	}
	return m
}

func (m *Memory) LoadOrders(_ context.Context) ([]ledger.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ledger.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, *o.Clone())
	}
	slices.SortFunc(out, func(a, b ledger.Order) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *Memory) SaveOrder(_ context.Context, o ledger.Order) error {
	m.mu.Lock()
	m.orders[o.ID] = *o.Clone()
	m.mu.Unlock()
	return nil
}

// Len reports how many orders are stored.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}
