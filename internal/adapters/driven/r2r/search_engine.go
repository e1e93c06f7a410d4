package r2r

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Retriever = (*SearchEngine)(nil)

// SearchEngine implements driven.Retriever using the R2R retrieval API
type SearchEngine struct {
	cfg          Config
	httpClient   *http.Client
	healthClient *http.Client

	// Concurrent readiness probes share one upstream call
	health singleflight.Group
}

// NewSearchEngine creates a new R2R-backed Retriever
func NewSearchEngine(cfg Config) *SearchEngine {
	cfg = cfg.normalize()
	return &SearchEngine{
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		healthClient: &http.Client{Timeout: HealthTimeout},
	}
}

// searchRequest is the body of an R2R retrieval call
type searchRequest struct {
	Query          string         `json:"query"`
	SearchSettings searchSettings `json:"search_settings"`
}

type searchSettings struct {
	UseHybridSearch bool           `json:"use_hybrid_search"`
	Limit           int            `json:"limit"`
	Filters         map[string]any `json:"filters,omitempty"`
}

// searchResponse keeps results raw; the envelope varies by R2R version
type searchResponse struct {
	Results json.RawMessage `json:"results"`
}

// Search runs a retrieval query, restricted to req.ScopeID when set
func (s *SearchEngine) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResults, error) {
	if s.cfg.SearchURL == "" {
		return nil, &domain.SearchError{Detail: "no API URL configured"}
	}

	body, err := json.Marshal(buildSearchRequest(req))
	if err != nil {
		return nil, &domain.SearchError{Detail: "failed to marshal request", Err: err}
	}

	httpReq, err := newRequest(ctx, s.cfg, http.MethodPost, s.cfg.SearchURL, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.SearchError{Err: err}
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, s.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.SearchError{StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, &domain.SearchError{Detail: "invalid JSON response", Err: err}
	}

	return &domain.SearchResults{Raw: sr.Results}, nil
}

func buildSearchRequest(req domain.SearchRequest) searchRequest {
	body := searchRequest{
		Query: req.Query,
		SearchSettings: searchSettings{
			UseHybridSearch: req.UseHybridSearch,
			Limit:           domain.ClampInt(req.Limit, domain.MinSearchLimit, domain.MaxSearchLimit),
		},
	}
	if req.Scoped() {
		body.SearchSettings.Filters = map[string]any{
			"collection_ids": map[string]any{"$in": []string{req.ScopeID}},
		}
	}
	return body
}

func (s *SearchEngine) transportError(err error) *domain.SearchError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &domain.SearchError{
			Detail: fmt.Sprintf("request timed out after %d seconds", int(s.cfg.Timeout.Seconds())),
			Err:    err,
		}
	case errors.Is(err, context.Canceled):
		return &domain.SearchError{Detail: "request cancelled", Err: err}
	default:
		return &domain.SearchError{
			Detail: "cannot connect to R2R API at " + s.cfg.SearchURL,
			Err:    err,
		}
	}
}

// HealthCheck probes the R2R health endpoint next to the search endpoint
func (s *SearchEngine) HealthCheck(ctx context.Context) error {
	if s.cfg.SearchURL == "" {
		return fmt.Errorf("%w: no API URL configured", domain.ErrServiceUnavailable)
	}

	_, err, _ := s.health.Do(s.HealthURL(), func() (any, error) {
		return nil, s.probe(ctx)
	})
	return err
}

func (s *SearchEngine) probe(ctx context.Context) error {
	req, err := newRequest(ctx, s.cfg, http.MethodGet, s.HealthURL(), nil)
	if err != nil {
		return err
	}

	resp, err := s.healthClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: health check returned %d", domain.ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

// HealthURL returns the health endpoint derived from the search URL
func (s *SearchEngine) HealthURL() string {
	return strings.TrimSuffix(s.cfg.SearchURL, "/search") + "/health"
}

// Endpoint returns the configured search URL
func (s *SearchEngine) Endpoint() string {
	return s.cfg.SearchURL
}

// Close releases idle connections
func (s *SearchEngine) Close() error {
	s.httpClient.CloseIdleConnections()
	s.healthClient.CloseIdleConnections()
	return nil
}
