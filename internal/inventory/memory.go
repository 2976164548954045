package inventory

import (
	"context"
	"sync"

	"github.com/udisondev/hotzone/internal/model"
)

// Memory is an in-process Authority used by the dev server and tests.
// Carry capacity is a flat per-player item count limit; zero means unlimited.
type Memory struct {
	mu       sync.Mutex
	items    map[model.CitizenID]map[string]int
	money    map[model.CitizenID]int64
	capacity int
}

// NewMemory creates an empty in-memory authority.
func NewMemory(capacity int) *Memory {
	return &Memory{
		items:    make(map[model.CitizenID]map[string]int),
		money:    make(map[model.CitizenID]int64),
		capacity: capacity,
	}
}

// Give seeds a player's inventory, bypassing capacity.
func (m *Memory) Give(player model.CitizenID, itemID string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bag(player)[itemID] += qty
}

func (m *Memory) bag(player model.CitizenID) map[string]int {
	b, ok := m.items[player]
	if !ok {
		b = make(map[string]int)
		m.items[player] = b
	}
	return b
}

func (m *Memory) total(player model.CitizenID) int {
	n := 0
	for _, c := range m.items[player] {
		n += c
	}
	return n
}

func (m *Memory) CheckAccessItem(_ context.Context, player model.CitizenID, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[player][itemID] > 0, nil
}

func (m *Memory) ConsumeAccessItem(_ context.Context, player model.CitizenID, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bag(player)
	if b[itemID] <= 0 {
		return false, nil
	}
	b[itemID]--
	if b[itemID] == 0 {
		delete(b, itemID)
	}
	return true, nil
}

func (m *Memory) GetItemCount(_ context.Context, player model.CitizenID, itemID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[player][itemID], nil
}

func (m *Memory) RemoveItem(_ context.Context, player model.CitizenID, itemID string, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bag(player)
	if qty <= 0 || b[itemID] < qty {
		return false, nil
	}
	b[itemID] -= qty
	if b[itemID] == 0 {
		delete(b, itemID)
	}
	return true, nil
}

func (m *Memory) AddItem(_ context.Context, player model.CitizenID, itemID string, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if qty <= 0 {
		return false, nil
	}
	if m.capacity > 0 && m.total(player)+qty > m.capacity {
		return false, nil
	}
	m.bag(player)[itemID] += qty
	return true, nil
}

func (m *Memory) CanCarryItem(_ context.Context, player model.CitizenID, _ string, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.capacity <= 0 {
		return true, nil
	}
	return m.total(player)+qty <= m.capacity, nil
}

func (m *Memory) AddMoney(_ context.Context, player model.CitizenID, amount int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.money[player] += amount
	return nil
}

func (m *Memory) RemoveMoney(_ context.Context, player model.CitizenID, amount int64, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.money[player] < amount {
		return false, nil
	}
	m.money[player] -= amount
	return true, nil
}

func (m *Memory) GetMoney(_ context.Context, player model.CitizenID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.money[player], nil
}
