package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// OutcomeResponse is returned for every run that ended without a model reply
type OutcomeResponse struct {
	Outcome domain.OutcomeKind  `json:"outcome"`
	Denial  domain.DenialReason `json:"denial,omitempty"`
	Message string              `json:"message"`
}

// ReadyResponse reports pipeline readiness
type ReadyResponse struct {
	Status  string              `json:"status"`
	Summary string              `json:"summary"`
	Health  domain.HealthStatus `json:"health"`
	Limiter string              `json:"rate_limiter,omitempty"`
}

// UserRef names the caller in request bodies when identity tokens are off
type UserRef struct {
	Email string `json:"email"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
}

// ChatCompletionRequest is an OpenAI-compatible chat request
type ChatCompletionRequest struct {
	// Model is accepted for compatibility; the configured model is used
	Model    string               `json:"model,omitempty"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream,omitempty"`
	User     *UserRef             `json:"user,omitempty"`
}

// ContextRequest asks for curated context only
type ContextRequest struct {
	Query string   `json:"query"`
	User  *UserRef `json:"user,omitempty"`
}

// ContextResponse carries the curated context for a query
type ContextResponse struct {
	Outcome       domain.OutcomeKind  `json:"outcome"`
	Denial        domain.DenialReason `json:"denial,omitempty"`
	Message       string              `json:"message,omitempty"`
	Context       string              `json:"context,omitempty"`
	Sources       []domain.Source     `json:"sources,omitempty"`
	TotalRelevant int                 `json:"total_relevant,omitempty"`
	Shown         int                 `json:"shown,omitempty"`
}

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	health := s.contextService.Health(r.Context())
	resp := ReadyResponse{
		Status:  "ready",
		Summary: health.Summary(),
		Health:  health,
	}

	status := http.StatusOK
	if !health.Ready {
		resp.Status = "not ready"
		status = http.StatusServiceUnavailable
	}

	if s.limiter != nil {
		resp.Limiter = "ok"
		if err := s.limiter.Ping(r.Context()); err != nil {
			s.logger.Warn("rate limiter ping failed", "error", err)
			resp.Limiter = "unavailable"
		}
	}

	writeJSON(w, status, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Pipeline endpoints

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req ChatCompletionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out := s.contextService.Answer(r.Context(), domain.AnswerRequest{
		Messages: req.Messages,
		Stream:   req.Stream,
		Identity: s.identityFor(r, req.User),
	})

	if !out.Succeeded() {
		writeOutcome(w, out)
		return
	}

	switch {
	case out.Stream != nil:
		s.writeStream(w, out.Stream)
	case out.Response != nil && len(out.Response.Raw) > 0:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out.Response.Raw)
	case out.Response != nil:
		writeJSON(w, http.StatusOK, out.Response)
	default:
		writeOutcome(w, out)
	}
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out := s.contextService.BuildContext(r.Context(), domain.ContextRequest{
		Query:    req.Query,
		Identity: s.identityFor(r, req.User),
	})

	resp := ContextResponse{
		Outcome: out.Kind,
		Denial:  out.Denial,
		Message: out.Message,
	}
	if p := out.Payload; p != nil {
		resp.Context = p.Text
		resp.Sources = p.Sources
		resp.TotalRelevant = p.TotalRelevant
		resp.Shown = p.Shown
	}
	writeJSON(w, statusForOutcome(out.Kind), resp)
}

// identityFor returns the verified token identity when tokens are enabled,
// otherwise the identity named in the body
func (s *Server) identityFor(r *http.Request, user *UserRef) *domain.Identity {
	if s.verifier != nil {
		return GetIdentity(r.Context())
	}
	if user == nil || strings.TrimSpace(user.Email) == "" {
		return nil
	}
	return &domain.Identity{
		Email:  strings.TrimSpace(user.Email),
		UserID: user.ID,
		Name:   user.Name,
	}
}

// writeStream copies a model stream to the client unchanged, flushing after
// every read
func (s *Server) writeStream(w http.ResponseWriter, stream *domain.ChatStream) {
	defer stream.Body.Close()

	contentType := stream.ContentType
	if contentType == "" {
		contentType = "text/event-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, err := stream.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				s.logger.Warn("client went away during stream", "error", werr)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Warn("model stream ended with error", "error", err)
			}
			return
		}
	}
}

// statusForOutcome maps a pipeline outcome to an HTTP status
func statusForOutcome(kind domain.OutcomeKind) int {
	switch kind {
	case domain.OutcomeSuccess, domain.OutcomeEmptyResult, domain.OutcomeNoRelevantResult:
		return http.StatusOK
	case domain.OutcomeInputError:
		return http.StatusBadRequest
	case domain.OutcomeAccessDenied:
		return http.StatusForbidden
	case domain.OutcomePermissionCheckFailed:
		return http.StatusServiceUnavailable
	case domain.OutcomeSearchError:
		return http.StatusBadGateway
	default:
		// config_error, system_error
		return http.StatusInternalServerError
	}
}

func writeOutcome(w http.ResponseWriter, out *domain.Outcome) {
	writeJSON(w, statusForOutcome(out.Kind), OutcomeResponse{
		Outcome: out.Kind,
		Denial:  out.Denial,
		Message: out.Message,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
