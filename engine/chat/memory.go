package chat

import (
	"context"
	"sync"
)

// MemoryHistory keeps the most recent entries in process memory.
type MemoryHistory struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
}

func NewMemoryHistory(maxEntries int) *MemoryHistory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryHistory{max: maxEntries}
}

func (h *MemoryHistory) Append(_ context.Context, entries ...Entry) error {
	if err := validateAll(entries); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, stamp(entries)...)
	if over := len(h.entries) - h.max; over > 0 {
		h.entries = append([]Entry(nil), h.entries[over:]...)
	}
	return nil
}

func (h *MemoryHistory) List(_ context.Context) ([]Entry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Entry(nil), h.entries...), nil
}

func (h *MemoryHistory) Clear(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	return nil
}
