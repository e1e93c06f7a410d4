package r2r

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
)

const (
	// DefaultTimeout is the search request timeout
	DefaultTimeout = 30 * time.Second
	// CollectionTimeout bounds a per-user collection lookup
	CollectionTimeout = 10 * time.Second
	// HealthTimeout bounds the health probe
	HealthTimeout = 5 * time.Second
	// DefaultOwnerID is the owner used for collection lookups when none is set
	DefaultOwnerID = "00000000-0000-0000-0000-000000000000"
	// DefaultUserAgent identifies this service to R2R
	DefaultUserAgent = "sercha-r2r/dev"

	maxErrorDetail = 500
)

// Config holds R2R connection configuration
type Config struct {
	// SearchURL is the retrieval endpoint (e.g., http://r2r:7272/v3/retrieval/search)
	SearchURL string

	// CollectionsURL is the per-user collection endpoint (e.g., http://r2r:7272/v3/collections)
	CollectionsURL string

	// BearerToken authenticates every call
	BearerToken string

	// DefaultOwnerID is sent as owner_id on collection lookups
	DefaultOwnerID string

	// Timeout for search requests, capped at domain.MaxRequestTimeout
	Timeout time.Duration

	// UserAgent header value
	UserAgent string

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig(searchURL, collectionsURL, token string) Config {
	return Config{
		SearchURL:      searchURL,
		CollectionsURL: collectionsURL,
		BearerToken:    token,
		DefaultOwnerID: DefaultOwnerID,
		Timeout:        DefaultTimeout,
		UserAgent:      DefaultUserAgent,
	}
}

func (c Config) normalize() Config {
	c.SearchURL = strings.TrimRight(strings.TrimSpace(c.SearchURL), "/")
	c.CollectionsURL = strings.TrimRight(strings.TrimSpace(c.CollectionsURL), "/")
	c.BearerToken = strings.TrimSpace(c.BearerToken)
	if c.DefaultOwnerID == "" {
		c.DefaultOwnerID = DefaultOwnerID
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	c.Timeout = domain.ClampTimeout(c.Timeout, domain.MaxRequestTimeout)
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// newRequest builds an authenticated R2R request
func newRequest(ctx context.Context, cfg Config, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+cfg.BearerToken)
	req.Header.Set("User-Agent", cfg.UserAgent)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

// readDetail reads at most maxErrorDetail characters of an error body
func readDetail(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorDetail*4))
	detail := strings.TrimSpace(string(body))
	if runes := []rune(detail); len(runes) > maxErrorDetail {
		detail = string(runes[:maxErrorDetail])
	}
	return detail
}
