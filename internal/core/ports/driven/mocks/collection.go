package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
)

// Ensure MockCollections implements CollectionLookup
var _ driven.CollectionLookup = (*MockCollections)(nil)

// MockCollections is an in-memory CollectionLookup keyed by GUID.
// Unknown GUIDs resolve to LookupNotFound.
type MockCollections struct {
	mu      sync.Mutex
	entries map[string]domain.CollectionLookup
	calls   []string
}

// NewMockCollections creates a new MockCollections
func NewMockCollections() *MockCollections {
	return &MockCollections{entries: make(map[string]domain.CollectionLookup)}
}

// AddCollection registers a found scope for guid
func (m *MockCollections) AddCollection(guid, scopeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[guid] = domain.CollectionLookup{ScopeID: scopeID, Status: domain.LookupFound}
}

// SetResult registers an arbitrary lookup result for guid
func (m *MockCollections) SetResult(guid string, result domain.CollectionLookup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[guid] = result
}

func (m *MockCollections) LookupCollection(ctx context.Context, guid string) domain.CollectionLookup {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, guid)
	if result, ok := m.entries[guid]; ok {
		return result
	}
	return domain.CollectionLookup{Status: domain.LookupNotFound}
}

// Calls returns the GUIDs looked up so far
func (m *MockCollections) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
