package store

import (
	"context"
	"sync"
)

// MemoryPreferenceStore keeps preferences in-process. Values are lost on restart.
type MemoryPreferenceStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string // visitor -> key -> value
}

// NewMemoryPreferenceStore initializes an empty in-memory store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{values: make(map[string]map[string]string)}
}

func (m *MemoryPreferenceStore) Get(_ context.Context, visitorID, key string) (string, bool, error) {
	visitorID, key, err := normalizeKey(visitorID, key)
	if err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[visitorID][key]
	return v, ok, nil
}

func (m *MemoryPreferenceStore) Set(_ context.Context, visitorID, key, value string) error {
	visitorID, key, err := normalizeKey(visitorID, key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prefs, ok := m.values[visitorID]
	if !ok {
		prefs = make(map[string]string)
		m.values[visitorID] = prefs
	}
	prefs[key] = value
	return nil
}
