package draftstore

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory draft store for testing and single-process use.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]storedDraft // draftID -> draft
	closed bool
}

// storedDraft holds draft data with metadata for List().
type storedDraft struct {
	flowID    string
	data      []byte
	sequence  int
	timestamp time.Time
}

// NewMemoryStore creates a new in-memory draft store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]storedDraft),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(flowID, draftID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	// Copy data to avoid retaining caller's slice
	stored := make([]byte, len(data))
	copy(stored, data)

	if existing, ok := m.data[draftID]; ok && existing.flowID == flowID {
		existing.data = stored
		existing.timestamp = time.Now().UTC()
		m.data[draftID] = existing
		return nil
	}

	seq := 1
	for _, d := range m.data {
		if d.flowID == flowID && d.sequence >= seq {
			seq = d.sequence + 1
		}
	}

	m.data[draftID] = storedDraft{
		flowID:    flowID,
		data:      stored,
		sequence:  seq,
		timestamp: time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(draftID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	d, ok := m.data[draftID]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy to prevent modification
	result := make([]byte, len(d.data))
	copy(result, d.data)
	return result, nil
}

// List implements Store.
func (m *MemoryStore) List(flowID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	var infos []Info
	for draftID, d := range m.data {
		if d.flowID != flowID {
			continue
		}
		infos = append(infos, Info{
			FlowID:    flowID,
			DraftID:   draftID,
			Sequence:  d.sequence,
			Timestamp: d.timestamp,
			Size:      int64(len(d.data)),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Sequence < infos[j].Sequence
	})
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(draftID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, draftID)
	return nil
}

// DeleteFlow implements Store.
func (m *MemoryStore) DeleteFlow(flowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	for draftID, d := range m.data {
		if d.flowID == flowID {
			delete(m.data, draftID)
		}
	}
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of stored drafts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
