package driving

import (
	"context"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
)

// ContextService is the permission-scoped retrieval pipeline
type ContextService interface {
	// Answer curates context for the last user message and forwards the
	// rewritten conversation to the downstream model
	Answer(ctx context.Context, req domain.AnswerRequest) *domain.Outcome

	// BuildContext curates context for a query without calling a model
	BuildContext(ctx context.Context, req domain.ContextRequest) *domain.Outcome

	// Health reports whether the pipeline can serve requests
	Health(ctx context.Context) domain.HealthStatus
}
