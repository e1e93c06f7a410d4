package driven

import (
	"context"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
)

// ChatCompleter invokes the downstream language model
type ChatCompleter interface {
	// Complete sends a conversation and returns the full reply
	Complete(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)

	// Stream sends a conversation and returns the raw streamed body.
	// The caller must close the stream.
	Stream(ctx context.Context, req domain.ChatRequest) (*domain.ChatStream, error)
}
