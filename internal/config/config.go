// Package config loads service configuration from the environment, an
// optional .env file and an optional YAML file.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
)

// Config is the complete service configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	R2R       R2RConfig       `mapstructure:"r2r"`
	LDAP      LDAPConfig      `mapstructure:"ldap"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Model     ModelConfig     `mapstructure:"model"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host           string        `mapstructure:"host" validate:"required"`
	Port           int           `mapstructure:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" validate:"min=1s"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// R2RConfig configures the retrieval service
type R2RConfig struct {
	SearchURL      string        `mapstructure:"search_url" validate:"omitempty,url"`
	CollectionsURL string        `mapstructure:"collections_url" validate:"omitempty,url"`
	BearerToken    string        `mapstructure:"bearer_token"`
	OwnerID        string        `mapstructure:"owner_id" validate:"omitempty,uuid"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=5s,max=300s"`
}

// LDAPConfig configures the identity directory
type LDAPConfig struct {
	ServerURI     string        `mapstructure:"server_uri"`
	BindUser      string        `mapstructure:"bind_user"`
	BindPassword  string        `mapstructure:"bind_password"`
	SearchBase    string        `mapstructure:"search_base"`
	UserFilter    string        `mapstructure:"user_filter" validate:"contains={email}"`
	GUIDAttribute string        `mapstructure:"guid_attribute" validate:"required"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"min=1s"`
}

// PipelineConfig holds the pipeline knobs
type PipelineConfig struct {
	DocumentBaseURL      string  `mapstructure:"document_base_url" validate:"omitempty,url"`
	EnforcePermissions   bool    `mapstructure:"enforce_permissions"`
	UseHybridSearch      bool    `mapstructure:"use_hybrid_search"`
	SearchLimit          int     `mapstructure:"search_limit" validate:"min=1,max=100"`
	MaxChunksInContext   int     `mapstructure:"max_chunks_in_context" validate:"min=1,max=20"`
	MaxCharsPerChunk     int     `mapstructure:"max_chars_per_chunk" validate:"min=100,max=5000"`
	MinRelevanceScore    float64 `mapstructure:"min_relevance_score" validate:"min=0,max=1"`
	IncludeMetadata      bool    `mapstructure:"include_metadata"`
	EnableSourceEmission bool    `mapstructure:"enable_source_emission"`
	SystemPrompt         string  `mapstructure:"system_prompt"`
}

// ModelConfig configures the downstream chat model
type ModelConfig struct {
	Name    string        `mapstructure:"name" validate:"required"`
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=1s"`
}

// IdentityConfig configures caller identity tokens. An empty secret means
// callers are identified by the request body instead.
type IdentityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RedisConfig configures the optional Redis connection
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// RateLimitConfig configures per-caller request budgets
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute" validate:"min=0"`
}

// TracingConfig configures OpenTelemetry export
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
	ServiceName string  `mapstructure:"service_name" validate:"required"`
}

// ValidationError lists every field that failed validation
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field, msg := range e.Errors {
		fields = append(fields, field+" "+msg)
	}
	sort.Strings(fields)
	return fmt.Sprintf("invalid configuration: %s", strings.Join(fields, "; "))
}

// ToPipelineSettings maps the configuration onto pipeline settings
func (c *Config) ToPipelineSettings() domain.PipelineSettings {
	return domain.PipelineSettings{
		Model:                c.Model.Name,
		BearerToken:          c.R2R.BearerToken,
		DocumentBaseURL:      c.Pipeline.DocumentBaseURL,
		EnforcePermissions:   c.Pipeline.EnforcePermissions,
		UseHybridSearch:      c.Pipeline.UseHybridSearch,
		SearchLimit:          c.Pipeline.SearchLimit,
		MaxChunksInContext:   c.Pipeline.MaxChunksInContext,
		MaxCharsPerChunk:     c.Pipeline.MaxCharsPerChunk,
		MinRelevanceScore:    c.Pipeline.MinRelevanceScore,
		IncludeMetadata:      c.Pipeline.IncludeMetadata,
		EnableSourceEmission: c.Pipeline.EnableSourceEmission,
		SystemPrompt:         c.Pipeline.SystemPrompt,
	}
}

// IdentityTokensEnabled reports whether callers must present identity tokens
func (c *Config) IdentityTokensEnabled() bool {
	return strings.TrimSpace(c.Identity.JWTSecret) != ""
}

// RateLimitEnabled reports whether a Redis-backed limiter should run
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimit.PerMinute > 0 && strings.TrimSpace(c.Redis.URL) != ""
}
