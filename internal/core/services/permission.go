package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
)

const (
	lookupDirectory  = "directory"
	lookupCollection = "collection"
)

// ScopeResolver maps a caller email to a retrieval scope by way of the
// directory GUID. Lookup failures of any kind resolve to no scope; each
// cause is logged with its own status so outages stay visible.
type ScopeResolver struct {
	directory   driven.DirectoryLookup
	collections driven.CollectionLookup
	observer    driven.PipelineObserver
	logger      *slog.Logger
}

// NewScopeResolver creates a new scope resolver.
func NewScopeResolver(directory driven.DirectoryLookup, collections driven.CollectionLookup, observer driven.PipelineObserver, logger *slog.Logger) *ScopeResolver {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = driven.NopObserver{}
	}
	return &ScopeResolver{
		directory:   directory,
		collections: collections,
		observer:    observer,
		logger:      logger,
	}
}

// Resolve looks up the scope for email. The returned resolution carries the
// per-stage status. An error is returned only when resolution itself breaks
// (missing collaborators or a panic in a lookup), never for a plain miss.
func (r *ScopeResolver) Resolve(ctx context.Context, email string) (res *domain.ScopeResolution, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("scope resolution panicked", "email", email, "panic", p)
			res, err = nil, fmt.Errorf("%w: %v", domain.ErrPermissionCheck, p)
		}
	}()

	if r.directory == nil || r.collections == nil {
		return nil, fmt.Errorf("%w: scope lookups not configured", domain.ErrPermissionCheck)
	}

	res = &domain.ScopeResolution{Email: email}

	start := time.Now()
	res.GUID = r.directory.LookupGUID(ctx, email)
	r.observer.ObserveStage("directory_lookup", time.Since(start))
	r.observer.ObserveLookup(lookupDirectory, res.GUID.Status)
	r.logLookup(lookupDirectory, res.GUID.Status, res.GUID.Err, "email", email)
	if !res.GUID.Found() {
		return res, nil
	}

	start = time.Now()
	res.Collection = r.collections.LookupCollection(ctx, res.GUID.GUID)
	r.observer.ObserveStage("collection_lookup", time.Since(start))
	r.observer.ObserveLookup(lookupCollection, res.Collection.Status)
	r.logLookup(lookupCollection, res.Collection.Status, res.Collection.Err, "email", email, "guid", res.GUID.GUID)

	return res, nil
}

func (r *ScopeResolver) logLookup(lookup string, status domain.LookupStatus, cause error, attrs ...any) {
	attrs = append(attrs, "lookup", lookup, "status", string(status))
	switch status {
	case domain.LookupFound:
		r.logger.Debug("lookup resolved", attrs...)
	case domain.LookupNotFound:
		r.logger.Info("lookup found no match", attrs...)
	case domain.LookupConfigError:
		r.logger.Error("lookup misconfigured", append(attrs, "error", cause)...)
	default:
		r.logger.Warn("lookup failed", append(attrs, "error", cause)...)
	}
}
