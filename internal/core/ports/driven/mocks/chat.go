package mocks

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
)

// Ensure MockChatCompleter implements ChatCompleter
var _ driven.ChatCompleter = (*MockChatCompleter)(nil)

// MockChatCompleter answers every request with a fixed reply and records
// the requests it was given.
type MockChatCompleter struct {
	mu       sync.Mutex
	requests []domain.ChatRequest

	// Reply is returned as the completion content
	Reply string
	// Err, when set, fails both Complete and Stream
	Err error
}

// NewMockChatCompleter creates a new MockChatCompleter
func NewMockChatCompleter(reply string) *MockChatCompleter {
	return &MockChatCompleter{Reply: reply}
}

func (m *MockChatCompleter) Complete(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.record(req)
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.ChatResponse{Model: req.Model, Content: m.Reply}, nil
}

func (m *MockChatCompleter) Stream(ctx context.Context, req domain.ChatRequest) (*domain.ChatStream, error) {
	m.record(req)
	if m.Err != nil {
		return nil, m.Err
	}
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"" + m.Reply + "\"}}]}\n\ndata: [DONE]\n\n"
	return &domain.ChatStream{
		ContentType: "text/event-stream",
		Body:        io.NopCloser(strings.NewReader(body)),
	}, nil
}

func (m *MockChatCompleter) record(req domain.ChatRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

// Requests returns the chat requests received so far
func (m *MockChatCompleter) Requests() []domain.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChatRequest(nil), m.requests...)
}
