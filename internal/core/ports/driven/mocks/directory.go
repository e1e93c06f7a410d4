package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
)

// Ensure MockDirectory implements DirectoryLookup
var _ driven.DirectoryLookup = (*MockDirectory)(nil)

// MockDirectory is an in-memory DirectoryLookup keyed by email.
// Unknown emails resolve to LookupNotFound.
type MockDirectory struct {
	mu      sync.Mutex
	entries map[string]domain.GUIDLookup
	calls   []string

	// PanicWith, when set, makes LookupGUID panic with this value
	PanicWith any
}

// NewMockDirectory creates a new MockDirectory
func NewMockDirectory() *MockDirectory {
	return &MockDirectory{entries: make(map[string]domain.GUIDLookup)}
}

// AddUser registers a found GUID for email
func (m *MockDirectory) AddUser(email, guid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[email] = domain.GUIDLookup{GUID: guid, Status: domain.LookupFound}
}

// SetResult registers an arbitrary lookup result for email
func (m *MockDirectory) SetResult(email string, result domain.GUIDLookup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[email] = result
}

func (m *MockDirectory) LookupGUID(ctx context.Context, email string) domain.GUIDLookup {
	m.mu.Lock()
	m.calls = append(m.calls, email)
	result, ok := m.entries[email]
	m.mu.Unlock()

	if m.PanicWith != nil {
		panic(m.PanicWith)
	}
	if !ok {
		return domain.GUIDLookup{Status: domain.LookupNotFound}
	}
	return result
}

// Calls returns the emails looked up so far
func (m *MockDirectory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
