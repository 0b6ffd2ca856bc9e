package storage

import (
	"context"
	"sync"

	domain "github.com/bryanwahyu/plantcare/internal/domain/plants"
)

// MemorySlot keeps the blob in process memory. Used by tests and the
// "memory" storage driver.
type MemorySlot struct {
	mu     sync.RWMutex
	data   []byte
	writes int
}

func NewMemorySlot() *MemorySlot { return &MemorySlot{} }

func (m *MemorySlot) Read(ctx context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return nil, domain.ErrSlotEmpty
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemorySlot) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.writes++
	return nil
}

// Writes reports how many times the slot was written.
func (m *MemorySlot) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
