package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-r2r/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-r2r/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-r2r/internal/adapters/driven/ldap"
	"github.com/custodia-labs/sercha-r2r/internal/adapters/driven/r2r"
	redisadapter "github.com/custodia-labs/sercha-r2r/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-r2r/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-r2r/internal/config"
	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-r2r/internal/core/services"
	"github.com/custodia-labs/sercha-r2r/internal/observability"
)

var version = "dev"

const usage = `usage: sercha-r2r [mode]

modes:
  api                      serve the HTTP API (default)
  context <email> <query>  print the curated context for a query
  health                   print the retrieval health report
  token <email> [ttl]      mint an identity token with IDENTITY_JWT_SECRET
`

func main() {
	// Get run mode from environment (RUN_MODE) or command line arg
	mode := getEnv("RUN_MODE", "api")
	args := os.Args[1:]
	if len(args) > 0 {
		mode, args = args[0], args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sercha-r2r: %v\n", err)
		os.Exit(2)
	}

	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	// Setup context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var code int
	switch mode {
	case "api":
		code = runAPI(ctx, cfg, logger)
	case "context":
		code = runContext(ctx, cfg, logger, args)
	case "health":
		code = runHealth(ctx, cfg, logger)
	case "token":
		code = runToken(cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode: %s\n\n%s", mode, usage)
		code = 2
	}
	os.Exit(code)
}

// components are the pipeline and the adapters behind it
type components struct {
	pipeline  *services.Pipeline
	retriever *r2r.SearchEngine
	completer *ai.OpenAIChat
	metrics   *observability.Metrics
}

func (c *components) Close() {
	_ = c.retriever.Close()
	if c.completer != nil {
		_ = c.completer.Close()
	}
}

func buildComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	r2rCfg := r2r.Config{
		SearchURL:      cfg.R2R.SearchURL,
		CollectionsURL: cfg.R2R.CollectionsURL,
		BearerToken:    cfg.R2R.BearerToken,
		DefaultOwnerID: cfg.R2R.OwnerID,
		Timeout:        cfg.R2R.RequestTimeout,
		UserAgent:      "sercha-r2r/" + version,
		Logger:         logger,
	}
	retriever := r2r.NewSearchEngine(r2rCfg)
	collections := r2r.NewCollections(r2rCfg)

	directory := ldap.NewDirectory(ldap.Config{
		ServerURI:     cfg.LDAP.ServerURI,
		BindUser:      cfg.LDAP.BindUser,
		BindPassword:  cfg.LDAP.BindPassword,
		SearchBase:    cfg.LDAP.SearchBase,
		UserFilter:    cfg.LDAP.UserFilter,
		GUIDAttribute: cfg.LDAP.GUIDAttribute,
		Timeout:       cfg.LDAP.Timeout,
		Logger:        logger,
	})

	c := &components{retriever: retriever, metrics: observability.NewMetrics()}

	// Downstream model (optional; context mode works without it)
	var completer driven.ChatCompleter
	if cfg.Model.BaseURL != "" {
		chat, err := ai.NewOpenAIChat(cfg.Model.APIKey, cfg.Model.BaseURL, cfg.Model.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat client: %w", err)
		}
		c.completer = chat
		completer = chat
	} else {
		logger.Warn("no downstream model configured; chat completions will fail")
	}

	c.pipeline = services.NewPipeline(services.PipelineConfig{
		Settings:    cfg.ToPipelineSettings(),
		Directory:   directory,
		Collections: collections,
		Retriever:   retriever,
		Completer:   completer,
		Observer:    c.metrics,
		Logger:      logger,
	})
	return c, nil
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger) int {
	logger.Info("sercha-r2r starting", "version", version, "mode", "api")

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		logger.Error("failed to initialise tracing", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	c, err := buildComponents(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return 1
	}
	defer c.Close()

	// ===== Caller identity =====
	var verifier driven.IdentityVerifier
	if cfg.IdentityTokensEnabled() {
		verifier = auth.NewAdapterWithIssuer(cfg.Identity.JWTSecret, cfg.Identity.Issuer)
		logger.Info("identity tokens required")
	} else {
		logger.Warn("identity tokens disabled; callers are identified by the request body")
	}

	// ===== Rate limiting (Redis, optional) =====
	var limiter driven.RateLimiter
	if cfg.RateLimitEnabled() {
		client, err := redisadapter.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			return 1
		}
		defer client.Close()
		limiter = redisadapter.NewRateLimiter(client, cfg.RateLimit.PerMinute, time.Minute)
		logger.Info("rate limiting enabled", "per_minute", cfg.RateLimit.PerMinute)
	}

	server := http.NewServer(http.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MetricsHandler: c.metrics.Handler(),
		Observer:       c.metrics,
		Logger:         logger,
	}, c.pipeline, verifier, limiter)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		// Startup health report; failures only degrade readiness
		health := c.pipeline.Health(gctx)
		logger.Info("retrieval health", "summary", health.Summary(), "ready", health.Ready)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", "error", err)
		return 1
	}
	return 0
}

func runContext(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) int {
	if len(args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	c, err := buildComponents(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return 1
	}
	defer c.Close()

	out := c.pipeline.BuildContext(ctx, domain.ContextRequest{
		Query:    strings.Join(args[1:], " "),
		Identity: &domain.Identity{Email: args[0]},
	})

	if !out.Succeeded() {
		fmt.Println(out.Message)
		if out.Kind.IsError() {
			return 1
		}
		return 0
	}

	if sources := out.Payload.Sources; len(sources) > 0 {
		data, err := json.Marshal(sources)
		if err == nil {
			fmt.Printf("__SOURCES__: %s\n\n", data)
		}
	}
	fmt.Println(out.Payload.Text)
	return 0
}

func runHealth(ctx context.Context, cfg *config.Config, logger *slog.Logger) int {
	c, err := buildComponents(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return 1
	}
	defer c.Close()

	health := c.pipeline.Health(ctx)
	if !health.Ready {
		fmt.Println("❌ " + health.Summary())
		return 1
	}
	fmt.Println("✅ " + health.Summary())
	return 0
}

func runToken(cfg *config.Config, args []string) int {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	if !cfg.IdentityTokensEnabled() {
		fmt.Fprintln(os.Stderr, "IDENTITY_JWT_SECRET is not set")
		return 2
	}

	ttl := time.Hour
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid ttl: %v\n", err)
			return 2
		}
		ttl = d
	}

	adapter := auth.NewAdapterWithIssuer(cfg.Identity.JWTSecret, cfg.Identity.Issuer)
	token, err := adapter.GenerateToken(&domain.Identity{Email: args[0], UserID: args[0]}, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		return 1
	}
	fmt.Println(token)
	return 0
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
