package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file
const ConfigFileEnv = "SERCHA_CONFIG_FILE"

// Options controls where configuration is read from
type Options struct {
	// EnvFiles are loaded into the process environment first. Missing files
	// are skipped; variables already set are never overridden.
	EnvFiles []string

	// ConfigFile is an optional YAML file. Empty uses $SERCHA_CONFIG_FILE.
	ConfigFile string
}

// Load reads configuration from .env, the optional config file and the
// environment, in increasing order of precedence
func Load() (*Config, error) {
	return LoadWithOptions(Options{EnvFiles: []string{".env"}})
}

// LoadWithOptions is Load with explicit sources
func LoadWithOptions(opts Options) (*Config, error) {
	for _, path := range opts.EnvFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = os.Getenv(ConfigFileEnv)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// secondsDurationHook reads a bare number as whole seconds, so
// R2R_REQUEST_TIMEOUT=60 means one minute. Values with a unit ("90s", "2m")
// are left for the standard duration hook.
func secondsDurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(from, to reflect.Type, data any) (any, error) {
		if to != durationType {
			return data, nil
		}
		v := reflect.ValueOf(data)
		switch from.Kind() {
		case reflect.String:
			n, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
			if err != nil {
				return data, nil
			}
			return time.Duration(n * float64(time.Second)), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return time.Duration(v.Int()) * time.Second, nil
		case reflect.Float32, reflect.Float64:
			return time.Duration(v.Float() * float64(time.Second)), nil
		}
		return data, nil
	}
}

// Validate checks every bounded value. Failures are returned as a
// ValidationError keyed by configuration key (e.g. "r2r.request_timeout").
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	out := ValidationError{Errors: make(map[string]string, len(verrs))}
	for _, e := range verrs {
		key := e.Namespace()
		if _, rest, ok := strings.Cut(key, "."); ok {
			key = rest
		}
		if e.Param() != "" {
			out.Errors[key] = fmt.Sprintf("failed on '%s=%s' tag", e.Tag(), e.Param())
		} else {
			out.Errors[key] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
	}
	return out
}

// setDefaults registers a default for every key so AutomaticEnv can see it
func setDefaults(v *viper.Viper) {
	// HTTP server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.write_timeout", "330s")

	// Logging
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Retrieval service
	v.SetDefault("r2r.search_url", "http://your-r2r-server:7272/v3/retrieval/search")
	v.SetDefault("r2r.collections_url", "http://your-r2r-server:7272/v3/collections/name")
	v.SetDefault("r2r.bearer_token", "")
	v.SetDefault("r2r.owner_id", "00000000-0000-0000-0000-000000000000")
	v.SetDefault("r2r.request_timeout", "30s")

	// Directory
	v.SetDefault("ldap.server_uri", "ldap://your-ad-server.domain.com:389")
	v.SetDefault("ldap.bind_user", "")
	v.SetDefault("ldap.bind_password", "")
	v.SetDefault("ldap.search_base", "DC=domain,DC=com")
	v.SetDefault("ldap.user_filter", "(mail={email})")
	v.SetDefault("ldap.guid_attribute", "objectGUID")
	v.SetDefault("ldap.timeout", "10s")

	// Pipeline
	v.SetDefault("pipeline.document_base_url", "https://your-nextcloud.domain.com")
	v.SetDefault("pipeline.enforce_permissions", true)
	v.SetDefault("pipeline.use_hybrid_search", true)
	v.SetDefault("pipeline.search_limit", 10)
	v.SetDefault("pipeline.max_chunks_in_context", 8)
	v.SetDefault("pipeline.max_chars_per_chunk", 1200)
	v.SetDefault("pipeline.min_relevance_score", 0.0)
	v.SetDefault("pipeline.include_metadata", true)
	v.SetDefault("pipeline.enable_source_emission", true)
	v.SetDefault("pipeline.system_prompt", "")

	// Downstream model
	v.SetDefault("model.name", "ga3/qwen3:30b-a3b")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.timeout", "120s")

	// Caller identity
	v.SetDefault("identity.jwt_secret", "")
	v.SetDefault("identity.issuer", "")

	// Redis and rate limiting
	v.SetDefault("redis.url", "")
	v.SetDefault("ratelimit.per_minute", 0)

	// Tracing
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.service_name", "sercha-r2r")
}
