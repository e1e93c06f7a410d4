package driven

import (
	"context"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
)

// Retriever executes searches against the retrieval service (R2R)
type Retriever interface {
	// Search runs one query. When req.ScopeID is set it must be applied as a
	// collection filter. Failures are *domain.SearchError.
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResults, error)

	// HealthCheck verifies the retrieval service is reachable
	HealthCheck(ctx context.Context) error

	// Endpoint returns the configured search URL
	Endpoint() string
}
