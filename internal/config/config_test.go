package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadWithOptions(Options{})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.R2R.RequestTimeout)
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", cfg.R2R.OwnerID)
	assert.Equal(t, "(mail={email})", cfg.LDAP.UserFilter)
	assert.Equal(t, "objectGUID", cfg.LDAP.GUIDAttribute)
	assert.Equal(t, 10*time.Second, cfg.LDAP.Timeout)
	assert.Equal(t, "ga3/qwen3:30b-a3b", cfg.Model.Name)

	assert.True(t, cfg.Pipeline.EnforcePermissions)
	assert.True(t, cfg.Pipeline.UseHybridSearch)
	assert.Equal(t, 10, cfg.Pipeline.SearchLimit)
	assert.Equal(t, 8, cfg.Pipeline.MaxChunksInContext)
	assert.Equal(t, 1200, cfg.Pipeline.MaxCharsPerChunk)
	assert.Equal(t, 0.0, cfg.Pipeline.MinRelevanceScore)
	assert.True(t, cfg.Pipeline.IncludeMetadata)
	assert.True(t, cfg.Pipeline.EnableSourceEmission)

	assert.False(t, cfg.IdentityTokensEnabled())
	assert.False(t, cfg.RateLimitEnabled())
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("R2R_BEARER_TOKEN", "secret-token")
	t.Setenv("R2R_REQUEST_TIMEOUT", "60s")
	t.Setenv("LDAP_SERVER_URI", "ldaps://dc.example.com:636")
	t.Setenv("PIPELINE_SEARCH_LIMIT", "25")
	t.Setenv("PIPELINE_ENFORCE_PERMISSIONS", "false")
	t.Setenv("PIPELINE_MIN_RELEVANCE_SCORE", "0.35")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("IDENTITY_JWT_SECRET", "jwt-secret")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("RATELIMIT_PER_MINUTE", "30")

	cfg, err := LoadWithOptions(Options{})
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.R2R.BearerToken)
	assert.Equal(t, 60*time.Second, cfg.R2R.RequestTimeout)
	assert.Equal(t, "ldaps://dc.example.com:636", cfg.LDAP.ServerURI)
	assert.Equal(t, 25, cfg.Pipeline.SearchLimit)
	assert.False(t, cfg.Pipeline.EnforcePermissions)
	assert.InDelta(t, 0.35, cfg.Pipeline.MinRelevanceScore, 1e-9)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.IdentityTokensEnabled())
	assert.True(t, cfg.RateLimitEnabled())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte("pipeline:\n  search_limit: 20\n  max_chunks_in_context: 4\nlog:\n  format: text\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	// Environment beats the file
	t.Setenv("PIPELINE_MAX_CHUNKS_IN_CONTEXT", "6")

	cfg, err := LoadWithOptions(Options{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Pipeline.SearchLimit)
	assert.Equal(t, 6, cfg.Pipeline.MaxChunksInContext)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_BareSecondsDurations(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		yaml  string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "env integer",
			env:  map[string]string{"R2R_REQUEST_TIMEOUT": "60"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 60*time.Second, cfg.R2R.RequestTimeout)
			},
		},
		{
			name: "env with unit",
			env:  map[string]string{"R2R_REQUEST_TIMEOUT": "2m"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2*time.Minute, cfg.R2R.RequestTimeout)
			},
		},
		{
			name: "yaml integer",
			yaml: "ldap:\n  timeout: 15\nmodel:\n  timeout: 90\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 15*time.Second, cfg.LDAP.Timeout)
				assert.Equal(t, 90*time.Second, cfg.Model.Timeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			var opts Options
			if tt.yaml != "" {
				opts.ConfigFile = filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(opts.ConfigFile, []byte(tt.yaml), 0o600))
			}

			cfg, err := LoadWithOptions(opts)
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_BareSecondsOutOfRange(t *testing.T) {
	t.Setenv("R2R_REQUEST_TIMEOUT", "2")

	_, err := LoadWithOptions(Options{})

	var verr ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	assert.Contains(t, verr.Errors, "r2r.request_timeout")
}

func TestLoad_ConfigFileFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  name: llama3\n"), 0o600))
	t.Setenv(ConfigFileEnv, path)

	cfg, err := LoadWithOptions(Options{})
	require.NoError(t, err)
	assert.Equal(t, "llama3", cfg.Model.Name)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := LoadWithOptions(Options{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestLoad_EnvFile(t *testing.T) {
	const key = "LDAP_BIND_USER"
	if _, ok := os.LookupEnv(key); ok {
		t.Skipf("%s already set", key)
	}
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=CN=svc,DC=example,DC=com\n"), 0o600))

	cfg, err := LoadWithOptions(Options{EnvFiles: []string{path, filepath.Join(t.TempDir(), "absent.env")}})
	require.NoError(t, err)
	assert.Equal(t, "CN=svc,DC=example,DC=com", cfg.LDAP.BindUser)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		key  string
	}{
		{"search limit too high", map[string]string{"PIPELINE_SEARCH_LIMIT": "500"}, "pipeline.search_limit"},
		{"chunks too low", map[string]string{"PIPELINE_MAX_CHUNKS_IN_CONTEXT": "0"}, "pipeline.max_chunks_in_context"},
		{"chars too low", map[string]string{"PIPELINE_MAX_CHARS_PER_CHUNK": "50"}, "pipeline.max_chars_per_chunk"},
		{"score above one", map[string]string{"PIPELINE_MIN_RELEVANCE_SCORE": "1.5"}, "pipeline.min_relevance_score"},
		{"timeout too short", map[string]string{"R2R_REQUEST_TIMEOUT": "2s"}, "r2r.request_timeout"},
		{"timeout too long", map[string]string{"R2R_REQUEST_TIMEOUT": "10m"}, "r2r.request_timeout"},
		{"bad search url", map[string]string{"R2R_SEARCH_URL": "not a url"}, "r2r.search_url"},
		{"bad owner id", map[string]string{"R2R_OWNER_ID": "owner"}, "r2r.owner_id"},
		{"filter without placeholder", map[string]string{"LDAP_USER_FILTER": "(mail=*)"}, "ldap.user_filter"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "log.format"},
		{"tracing without endpoint", map[string]string{"TRACING_ENABLED": "true"}, "tracing.endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadWithOptions(Options{})
			require.Error(t, err)

			var verr ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %T", err)
			assert.Contains(t, verr.Errors, tt.key)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Errors: map[string]string{
		"r2r.request_timeout":   "failed on 'min=5s' tag",
		"pipeline.search_limit": "failed on 'max=100' tag",
	}}

	assert.Equal(t,
		"invalid configuration: pipeline.search_limit failed on 'max=100' tag; r2r.request_timeout failed on 'min=5s' tag",
		err.Error())
}

func TestToPipelineSettings(t *testing.T) {
	cfg, err := LoadWithOptions(Options{})
	require.NoError(t, err)
	cfg.R2R.BearerToken = "tok"
	cfg.Pipeline.SystemPrompt = "Be brief."

	s := cfg.ToPipelineSettings()

	assert.Equal(t, cfg.Model.Name, s.Model)
	assert.Equal(t, "tok", s.BearerToken)
	assert.Equal(t, cfg.Pipeline.DocumentBaseURL, s.DocumentBaseURL)
	assert.Equal(t, cfg.Pipeline.SearchLimit, s.SearchLimit)
	assert.Equal(t, cfg.Pipeline.MaxChunksInContext, s.MaxChunksInContext)
	assert.Equal(t, cfg.Pipeline.MaxCharsPerChunk, s.MaxCharsPerChunk)
	assert.Equal(t, "Be brief.", s.SystemPrompt)
	assert.True(t, s.EnforcePermissions)
	assert.True(t, s.HasToken())
}

func TestRateLimitEnabled_RequiresRedis(t *testing.T) {
	cfg := &Config{RateLimit: RateLimitConfig{PerMinute: 10}}
	assert.False(t, cfg.RateLimitEnabled())

	cfg.Redis.URL = "redis://localhost:6379"
	assert.True(t, cfg.RateLimitEnabled())
}
