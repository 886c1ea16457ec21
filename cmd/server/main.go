// Shopping assistant chat server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/shopassist/internal/api"
	"github.com/ashureev/shopassist/internal/assistant"
	"github.com/ashureev/shopassist/internal/cache"
	"github.com/ashureev/shopassist/internal/catalog"
	"github.com/ashureev/shopassist/internal/config"
	"github.com/ashureev/shopassist/internal/convlog"
	"github.com/ashureev/shopassist/internal/health"
	"github.com/ashureev/shopassist/internal/identity"
	"github.com/ashureev/shopassist/internal/intent"
	"github.com/ashureev/shopassist/internal/lexicon"
	"github.com/ashureev/shopassist/internal/llm"
	"github.com/ashureev/shopassist/internal/middleware"
	"github.com/ashureev/shopassist/internal/session"
	"github.com/ashureev/shopassist/web"
)

// memoryCacheLimit caps entries in the in-process cache.
const memoryCacheLimit = 1024

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vocab := lexicon.DefaultVocabulary()
	if cfg.VocabularyPath != "" {
		vocab, err = lexicon.LoadVocabulary(cfg.VocabularyPath)
		if err != nil {
			slog.Error("Failed to load vocabulary", "path", cfg.VocabularyPath, "error", err)
			os.Exit(1)
		}
		slog.Info("Vocabulary loaded", "path", cfg.VocabularyPath, "categories", len(vocab.Categories))
	}
	extractor := lexicon.NewExtractor(vocab)

	// Local catalog.
	local, err := catalog.NewSQLite(ctx, cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize catalog database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := local.Close(); closeErr != nil {
			slog.Error("Failed to close catalog database", "error", closeErr)
		}
	}()
	slog.Info("Catalog database ready", "path", cfg.DBPath)

	healthChecks := map[string]api.Pinger{"database": local}

	// Shared cache: Redis when configured, in-process otherwise.
	var cacheClient cache.Client
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			slog.Warn("Redis unavailable, falling back to in-memory cache", "addr", cfg.Redis.Addr, "error", err)
		} else {
			cacheClient = rc
			healthChecks["cache"] = rc
			slog.Info("Redis cache connected", "addr", cfg.Redis.Addr)
		}
	}
	if cacheClient == nil {
		mc, err := cache.NewMemoryClient(cfg.Catalog.CacheTTL, memoryCacheLimit)
		if err != nil {
			slog.Error("Failed to initialize memory cache", "error", err)
			os.Exit(1)
		}
		cacheClient = mc
	}
	defer func() {
		if closeErr := cacheClient.Close(); closeErr != nil {
			slog.Error("Failed to close cache", "error", closeErr)
		}
	}()

	var source catalog.Lister = local
	if cfg.Catalog.URL != "" {
		remote := catalog.NewRemoteStore(cfg.Catalog.URL, cfg.Catalog.Timeout)
		source = catalog.NewLayered(
			catalog.NewCached(remote, cacheClient, cfg.Catalog.CacheTTL),
			local,
			catalog.WithRetryAfter(cfg.Catalog.RetryAfter),
		)
		slog.Info("Remote catalog enabled", "url", cfg.Catalog.URL, "cache_ttl", cfg.Catalog.CacheTTL)
	}
	products := catalog.New(source, extractor)

	// Intent resolution: model first when configured, rules always.
	var primary []intent.Resolver
	if cfg.LLMReady() {
		completer, err := llm.NewArk(ctx, llm.Config{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		})
		if err != nil {
			slog.Warn("Failed to initialize chat model, using rules only", "error", err)
		} else {
			primary = append(primary, intent.NewModel(completer, extractor, cfg.LLM.Timeout))
			slog.Info("Model intent resolver enabled", "model", cfg.LLM.Model, "timeout", cfg.LLM.Timeout)
		}
	} else {
		slog.Info("Model intent resolver disabled, using rules only")
	}
	resolver := intent.NewChain(logger, intent.NewRules(extractor), primary...)

	conversationLogger, err := convlog.New(convlog.Config{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
		MaxOpenFiles:  cfg.ConversationLog.MaxOpenFiles,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	sessions := session.NewStore(
		session.WithTTL(cfg.Session.TTL),
		session.WithHistoryLimit(cfg.Session.HistoryLimit),
	)
	session.StartSweeper(ctx, sessions, cfg.Session.SweepInterval, func(key string) {
		slog.Debug("Session expired", "session_id", key)
		conversationLogger.CloseSession(key)
	})

	svc := assistant.NewService(sessions, resolver, products, conversationLogger, logger)

	// Initialize handlers.
	limiter := api.NewRateLimiter(ctx, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	chatHandler := api.NewHandler(svc, limiter, cfg.MaxRequestBodySize)
	healthHandler := api.NewHealthHandler(healthChecks, 0)
	chatSocket := api.NewChatSocket(svc, limiter, cfg.CORSOrigins)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.CORSOrigins, identity.SessionHeader))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	chatHandler.RegisterRoutes(r)
	api.RegisterSocket(r, chatSocket)

	// Serve embedded chat page (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
		IdleTimeout:  120 * time.Second,
	}

	var grpcHealth *health.Server
	if cfg.GRPCHealthAddr != "" {
		checks := make(map[string]health.Check, len(healthChecks))
		for name, p := range healthChecks {
			checks[name] = p.Ping
		}
		grpcHealth = health.NewServer(checks, 0, logger)
		go func() {
			if err := grpcHealth.ListenAndServe(ctx, cfg.GRPCHealthAddr); err != nil {
				slog.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	if grpcHealth != nil {
		grpcHealth.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
