package domain

import (
	"strings"
	"time"
)

// Bounds on configurable values, matching what the retrieval service accepts
const (
	MinSearchLimit        = 1
	MaxSearchLimit        = 100
	MinChunksInContext    = 1
	MaxChunksInContext    = 20
	MinCharsPerChunk      = 100
	MaxCharsPerChunk      = 5000
	MinRequestTimeout     = 5 * time.Second
	MaxRequestTimeout     = 300 * time.Second
	SourceContentMaxChars = 300
)

// PipelineSettings holds the per-instance knobs of the retrieval pipeline.
// Read-only after construction.
type PipelineSettings struct {
	// Model is the downstream model identifier
	Model string `json:"model"`

	// BearerToken authenticates against the retrieval service
	BearerToken string `json:"-"` // Never serialize

	// DocumentBaseURL prefixes external document links (<base>/f/<id>)
	DocumentBaseURL string `json:"document_base_url"`

	// Permission settings
	EnforcePermissions bool `json:"enforce_permissions"`

	// Search settings
	UseHybridSearch bool `json:"use_hybrid_search"`
	SearchLimit     int  `json:"search_limit"`

	// Response filtering
	MaxChunksInContext int     `json:"max_chunks_in_context"`
	MaxCharsPerChunk   int     `json:"max_chars_per_chunk"`
	MinRelevanceScore  float64 `json:"min_relevance_score"`

	// Presentation
	IncludeMetadata      bool   `json:"include_metadata"`
	EnableSourceEmission bool   `json:"enable_source_emission"`
	SystemPrompt         string `json:"system_prompt,omitempty"` // Empty uses the built-in prompt
}

// DefaultPipelineSettings returns the stock configuration
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		Model:                "ga3/qwen3:30b-a3b",
		DocumentBaseURL:      "https://your-nextcloud.domain.com",
		EnforcePermissions:   true,
		UseHybridSearch:      true,
		SearchLimit:          10,
		MaxChunksInContext:   8,
		MaxCharsPerChunk:     1200,
		MinRelevanceScore:    0.0,
		IncludeMetadata:      true,
		EnableSourceEmission: true,
	}
}

// HasToken reports whether a retrieval bearer token is configured
func (s PipelineSettings) HasToken() bool {
	return strings.TrimSpace(s.BearerToken) != ""
}

// Token returns the trimmed bearer token
func (s PipelineSettings) Token() string {
	return strings.TrimSpace(s.BearerToken)
}

// BaseURL returns the document base URL without a trailing slash
func (s PipelineSettings) BaseURL() string {
	return strings.TrimRight(s.DocumentBaseURL, "/")
}

// Normalize clamps every bounded value into its documented range
func (s PipelineSettings) Normalize() PipelineSettings {
	s.SearchLimit = ClampInt(s.SearchLimit, MinSearchLimit, MaxSearchLimit)
	s.MaxChunksInContext = ClampInt(s.MaxChunksInContext, MinChunksInContext, MaxChunksInContext)
	s.MaxCharsPerChunk = ClampInt(s.MaxCharsPerChunk, MinCharsPerChunk, MaxCharsPerChunk)
	if s.MinRelevanceScore < 0 {
		s.MinRelevanceScore = 0
	}
	if s.MinRelevanceScore > 1 {
		s.MinRelevanceScore = 1
	}
	return s
}

// ClampInt bounds v to [lo, hi]
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampTimeout bounds d to [MinRequestTimeout, ceiling]
func ClampTimeout(d, ceiling time.Duration) time.Duration {
	if d < MinRequestTimeout {
		return MinRequestTimeout
	}
	if d > ceiling {
		return ceiling
	}
	return d
}
