package r2r

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CollectionLookup = (*Collections)(nil)

// Collections resolves a directory GUID to the R2R collection owning that
// user's documents.
type Collections struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCollections creates a new R2R collection lookup
func NewCollections(cfg Config) *Collections {
	cfg = cfg.normalize()
	return &Collections{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: CollectionTimeout},
		logger:     cfg.Logger,
	}
}

type collectionResponse struct {
	Results struct {
		ID string `json:"id"`
	} `json:"results"`
}

// LookupCollection fetches the collection for guid. Only a 200 response with
// a non-empty results.id is a match.
func (c *Collections) LookupCollection(ctx context.Context, guid string) domain.CollectionLookup {
	if strings.TrimSpace(guid) == "" {
		return domain.CollectionLookup{Status: domain.LookupNotFound}
	}
	if c.cfg.CollectionsURL == "" || c.cfg.BearerToken == "" {
		return domain.CollectionLookup{
			Status: domain.LookupConfigError,
			Err:    errors.New("collections URL and bearer token are required"),
		}
	}

	req, err := newRequest(ctx, c.cfg, http.MethodGet, c.lookupURL(guid), nil)
	if err != nil {
		return domain.CollectionLookup{Status: domain.LookupConfigError, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("collection lookup request failed", "guid", guid, "error", err)
		return domain.CollectionLookup{Status: domain.LookupTransportError, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.CollectionLookup{Status: domain.LookupNotFound}
	case resp.StatusCode != http.StatusOK:
		detail := readDetail(resp.Body)
		c.logger.Warn("collection lookup returned error", "guid", guid, "status", resp.StatusCode, "detail", detail)
		return domain.CollectionLookup{
			Status: domain.LookupTransportError,
			Err:    fmt.Errorf("collection lookup returned %d: %s", resp.StatusCode, detail),
		}
	}

	var cr collectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return domain.CollectionLookup{
			Status: domain.LookupTransportError,
			Err:    fmt.Errorf("failed to parse collection response: %w", err),
		}
	}
	id := strings.TrimSpace(cr.Results.ID)
	if id == "" {
		return domain.CollectionLookup{Status: domain.LookupNotFound}
	}

	return domain.CollectionLookup{ScopeID: id, Status: domain.LookupFound}
}

func (c *Collections) lookupURL(guid string) string {
	q := url.Values{}
	q.Set("owner_id", c.cfg.DefaultOwnerID)
	return c.cfg.CollectionsURL + "/" + url.PathEscape(guid) + "?" + q.Encode()
}
