package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.ContextService = (*Pipeline)(nil)

const tracerName = "github.com/custodia-labs/sercha-r2r/internal/core/services"

// Request modes, used as the mode label on outcome metrics
const (
	ModeAnswer  = "answer"
	ModeContext = "context"
)

// User-facing outcome messages
const (
	msgNoMessages      = "Error: No messages provided"
	msgLastNotUser     = "Error: Last message must be from user"
	msgEmptyQuery      = "Error: Empty user query"
	msgQueryTooShort   = "Error: Search query too short: '%s'"
	msgMissingToken    = "Error: Missing R2R authentication token. Please configure the 'bearer_token' setting."
	msgNoIdentity      = "❌ **Access Denied**\n\nUnable to identify user for permission filtering. This search requires valid user authentication to ensure you only see documents you have access to."
	msgNoScope         = "❌ **Access Denied**\n\nNo document collection found for user: %s\nPlease contact your system administrator to request access."
	msgPermissionCheck = "❌ **Permission Check Failed**\n\nUnable to verify your document access permissions due to a system error. Please try again later or contact your system administrator."
	msgSearchError     = "Error: %s"
	msgEmptyResult     = "No relevant documents found for query: '%s'\n\n" +
		"The search returned no results. This could mean:\n" +
		"• No documents match your search terms\n" +
		"• You don't have access to documents containing this information\n" +
		"• Try rephrasing your question or using different keywords"
	msgNoRelevant  = "No sufficiently relevant documents found for query: '%s'\n\nFound %d results, but none met the minimum relevance threshold of %s."
	msgSystemError = "❌ **System Error**: %s"
	msgNoCompleter = "downstream model not configured"
)

// Retrieval health states
const (
	retrievalOK    = "connected"
	retrievalDown  = "unreachable"
	retrievalUnset = "not configured"
)

// Pipeline runs a request through parse, permission scoping, scoped search,
// curation and, for answers, the downstream model. Every request ends in
// exactly one Outcome; nothing is returned as a Go error and panics are
// converted to system errors.
//
// Stages:
//  1. Parse input into search text and instructions
//  2. Check the retrieval token
//  3. Resolve identity to scope (when permissions are enforced)
//  4. Execute the scoped search
//  5. Curate the ranked chunks
//  6. Forward the curated payload to the model (answers only)
type Pipeline struct {
	settings  domain.PipelineSettings
	scopes    *ScopeResolver
	retriever driven.Retriever
	completer driven.ChatCompleter
	curator   *Curator
	observer  driven.PipelineObserver
	tracer    trace.Tracer
	logger    *slog.Logger
}

// PipelineConfig holds dependencies for Pipeline.
type PipelineConfig struct {
	Settings    domain.PipelineSettings
	Directory   driven.DirectoryLookup
	Collections driven.CollectionLookup
	Retriever   driven.Retriever
	Completer   driven.ChatCompleter
	Observer    driven.PipelineObserver
	Logger      *slog.Logger
}

// NewPipeline creates a new pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = driven.NopObserver{}
	}
	settings := cfg.Settings.Normalize()

	return &Pipeline{
		settings:  settings,
		scopes:    NewScopeResolver(cfg.Directory, cfg.Collections, observer, logger),
		retriever: cfg.Retriever,
		completer: cfg.Completer,
		curator:   NewCurator(settings),
		observer:  observer,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
	}
}

// Settings returns the normalized settings the pipeline runs with
func (p *Pipeline) Settings() domain.PipelineSettings {
	return p.settings
}

// Answer builds context from the last user message and returns the model
// response for the rewritten conversation.
func (p *Pipeline) Answer(ctx context.Context, req domain.AnswerRequest) (out *domain.Outcome) {
	ctx, span := p.tracer.Start(ctx, "pipeline.answer", trace.WithAttributes(
		attribute.Bool("stream", req.Stream),
		attribute.Int("messages", len(req.Messages)),
	))
	defer p.finish(span, ModeAnswer, &out)

	if len(req.Messages) == 0 {
		return inputError(msgNoMessages)
	}
	content, ok := req.LastUserContent()
	if !ok {
		return inputError(msgLastNotUser)
	}

	out = p.buildContext(ctx, content, req.Identity)
	if !out.Succeeded() {
		return out
	}

	if p.completer == nil {
		return systemError(errors.New(msgNoCompleter))
	}

	chatReq := domain.ChatRequest{
		Model:    p.settings.Model,
		Messages: domain.ReplaceLastMessage(req.Messages, out.Payload.Text),
		Stream:   req.Stream,
	}

	cctx, cspan := p.tracer.Start(ctx, "pipeline.complete", trace.WithAttributes(
		attribute.String("model", chatReq.Model),
	))
	start := time.Now()
	if req.Stream {
		stream, err := p.completer.Stream(cctx, chatReq)
		p.endStage(cspan, "completion", start, err)
		if err != nil {
			p.logger.Error("model stream failed", "model", chatReq.Model, "error", err)
			return systemError(err)
		}
		out.Stream = stream
		return out
	}

	resp, err := p.completer.Complete(cctx, chatReq)
	p.endStage(cspan, "completion", start, err)
	if err != nil {
		p.logger.Error("model completion failed", "model", chatReq.Model, "error", err)
		return systemError(err)
	}
	out.Response = resp
	return out
}

// BuildContext runs the pipeline up to curation and returns the payload
// without calling the model.
func (p *Pipeline) BuildContext(ctx context.Context, req domain.ContextRequest) (out *domain.Outcome) {
	ctx, span := p.tracer.Start(ctx, "pipeline.context")
	defer p.finish(span, ModeContext, &out)

	return p.buildContext(ctx, req.Query, req.Identity)
}

// Health reports whether the retrieval service is configured and reachable.
func (p *Pipeline) Health(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatus{
		TokenConfigured: p.settings.HasToken(),
		SearchURLSet:    p.retriever != nil && p.retriever.Endpoint() != "",
		RetrievalStatus: retrievalUnset,
	}
	if !status.TokenConfigured || !status.SearchURLSet {
		return status
	}

	if err := p.retriever.HealthCheck(ctx); err != nil {
		p.logger.Warn("retrieval health check failed", "endpoint", p.retriever.Endpoint(), "error", err)
		status.RetrievalStatus = retrievalDown
		return status
	}
	status.RetrievalStatus = retrievalOK
	status.Ready = true
	return status
}

func (p *Pipeline) buildContext(ctx context.Context, raw string, identity *domain.Identity) *domain.Outcome {
	if strings.TrimSpace(raw) == "" {
		return inputError(msgEmptyQuery)
	}

	query := ParseInput(raw)
	if !query.IsSearchable() {
		return &domain.Outcome{
			Kind:    domain.OutcomeInputError,
			Message: fmt.Sprintf(msgQueryTooShort, query.SearchText),
			Err:     domain.ErrQueryTooShort,
		}
	}

	if !p.settings.HasToken() {
		return &domain.Outcome{
			Kind:    domain.OutcomeConfigError,
			Message: msgMissingToken,
			Err:     domain.ErrMissingToken,
		}
	}

	scopeID := ""
	if p.settings.EnforcePermissions {
		if !identity.HasUsableEmail() {
			p.logger.Info("denying request without usable identity")
			return &domain.Outcome{
				Kind:    domain.OutcomeAccessDenied,
				Denial:  domain.DenialNoIdentity,
				Message: msgNoIdentity,
				Err:     domain.ErrAccessDenied,
			}
		}
		email := identity.NormalizedEmail()

		sctx, sspan := p.tracer.Start(ctx, "pipeline.resolve_scope")
		resolution, err := p.scopes.Resolve(sctx, email)
		sspan.End()
		if err != nil {
			p.logger.Error("permission check failed", "email", email, "error", err)
			return &domain.Outcome{
				Kind:    domain.OutcomePermissionCheckFailed,
				Message: msgPermissionCheck,
				Err:     err,
			}
		}

		scopeID = resolution.ScopeID()
		if scopeID == "" {
			return &domain.Outcome{
				Kind:    domain.OutcomeAccessDenied,
				Denial:  domain.DenialNoScope,
				Message: fmt.Sprintf(msgNoScope, email),
				Err:     domain.ErrAccessDenied,
			}
		}
	}

	if p.retriever == nil {
		return systemError(errors.New("retrieval service not configured"))
	}

	searchReq := domain.SearchRequest{
		Query:           query.SearchText,
		ScopeID:         scopeID,
		UseHybridSearch: p.settings.UseHybridSearch,
		Limit:           p.settings.SearchLimit,
	}

	rctx, rspan := p.tracer.Start(ctx, "pipeline.search", trace.WithAttributes(
		attribute.Bool("scoped", searchReq.Scoped()),
		attribute.Int("limit", searchReq.Limit),
	))
	start := time.Now()
	results, err := p.retriever.Search(rctx, searchReq)
	p.endStage(rspan, "search", start, err)
	if err != nil {
		p.logger.Error("search failed", "scoped", searchReq.Scoped(), "error", err)
		return &domain.Outcome{
			Kind:    domain.OutcomeSearchError,
			Message: fmt.Sprintf(msgSearchError, err.Error()),
			Err:     err,
		}
	}

	var chunks []*domain.ResultChunk
	if results != nil {
		chunks = NormalizeResults(results.Raw)
	}
	if len(chunks) == 0 {
		return &domain.Outcome{
			Kind:    domain.OutcomeEmptyResult,
			Message: fmt.Sprintf(msgEmptyResult, query.SearchText),
		}
	}

	start = time.Now()
	payload := p.curator.Curate(query, chunks)
	p.observer.ObserveStage("curate", time.Since(start))
	if payload == nil {
		return &domain.Outcome{
			Kind: domain.OutcomeNoRelevantResult,
			Message: fmt.Sprintf(msgNoRelevant, query.SearchText, len(chunks),
				strconv.FormatFloat(p.settings.MinRelevanceScore, 'f', -1, 64)),
		}
	}

	p.logger.Debug("context built",
		"scoped", searchReq.Scoped(),
		"results", len(chunks),
		"relevant", payload.TotalRelevant,
		"shown", payload.Shown,
	)
	return &domain.Outcome{Kind: domain.OutcomeSuccess, Payload: payload}
}

// finish converts a panic into a system error, then records the outcome on
// the span and the observer.
func (p *Pipeline) finish(span trace.Span, mode string, out **domain.Outcome) {
	if r := recover(); r != nil {
		p.logger.Error("pipeline panicked", "mode", mode, "panic", r)
		*out = systemError(fmt.Errorf("%v", r))
	}
	if *out == nil {
		*out = systemError(errors.New("no outcome produced"))
	}

	kind := (*out).Kind
	span.SetAttributes(attribute.String("outcome", string(kind)))
	if kind.IsError() {
		span.SetStatus(codes.Error, string(kind))
	}
	span.End()

	p.observer.ObserveOutcome(mode, kind)
}

func (p *Pipeline) endStage(span trace.Span, stage string, start time.Time, err error) {
	p.observer.ObserveStage(stage, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func inputError(msg string) *domain.Outcome {
	return &domain.Outcome{
		Kind:    domain.OutcomeInputError,
		Message: msg,
		Err:     domain.ErrInvalidInput,
	}
}

func systemError(err error) *domain.Outcome {
	return &domain.Outcome{
		Kind:    domain.OutcomeSystemError,
		Message: fmt.Sprintf(msgSystemError, err.Error()),
		Err:     err,
	}
}
