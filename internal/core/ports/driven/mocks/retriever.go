package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
)

// Ensure MockRetriever implements Retriever
var _ driven.Retriever = (*MockRetriever)(nil)

// MockRetriever returns canned search results and records every request.
type MockRetriever struct {
	mu       sync.Mutex
	raw      json.RawMessage
	err      error
	requests []domain.SearchRequest

	// EndpointURL is returned by Endpoint
	EndpointURL string
	// HealthErr is returned by HealthCheck
	HealthErr error
}

// NewMockRetriever creates a MockRetriever that returns no results
func NewMockRetriever() *MockRetriever {
	return &MockRetriever{
		raw:         json.RawMessage(`[]`),
		EndpointURL: "http://r2r.test/v3/retrieval/search",
	}
}

// SetRaw sets the raw results value returned by Search
func (m *MockRetriever) SetRaw(raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = json.RawMessage(raw)
}

// SetChunks sets the chunks returned by Search as a bare list
func (m *MockRetriever) SetChunks(chunks []domain.ResultChunk) {
	data, err := json.Marshal(chunks)
	if err != nil {
		panic(err)
	}
	m.SetRaw(string(data))
}

// SetError makes Search fail with err
func (m *MockRetriever) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockRetriever) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResults, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.SearchResults{Raw: m.raw}, nil
}

func (m *MockRetriever) HealthCheck(ctx context.Context) error {
	return m.HealthErr
}

func (m *MockRetriever) Endpoint() string {
	return m.EndpointURL
}

// Requests returns the search requests received so far
func (m *MockRetriever) Requests() []domain.SearchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SearchRequest(nil), m.requests...)
}
