package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"replykit/internal/adapters/ai"
	"replykit/internal/adapters/browser"
	"replykit/internal/adapters/cache"
	"replykit/internal/adapters/platform"
	"replykit/internal/adapters/web"
	"replykit/internal/config"
	"replykit/internal/domain"
	"replykit/internal/usecases"
	"replykit/pkg/log"
	"replykit/pkg/log/transporters"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap := log.New(log.Info, transporters.NewStdout())
		bootstrap.Error("invalid configuration", "error", err)
		bootstrap.Close()
		os.Exit(1)
	}

	logger := newLogger(cfg)
	log.SetDefault(logger)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.GlobalError("server stopped", "error", err)
		logger.Close()
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	var logger *log.Logger
	if strings.EqualFold(cfg.LogFormat, "console") {
		logger = log.New(level, transporters.NewConsole())
	} else {
		logger = log.New(level, transporters.NewStdout())
	}
	if err != nil {
		logger.Warn("unknown log level, using info", "level", cfg.LogLevel)
	}
	return logger
}

func run(ctx context.Context, cfg *config.Config) error {
	// Selectors, optionally overridden from disk
	selectors, err := platform.LoadSelectors(cfg.SelectorsPath)
	if err != nil {
		return err
	}
	if cfg.SelectorsPath != "" {
		go selectors.Watch(ctx, cfg.SelectorsWatchPeriod)
	}
	registry := platform.Default(selectors)

	// Analysis cache
	var kv cache.KV
	switch cfg.Cache.Backend {
	case "redis":
		redisKV, err := cache.NewRedisKV(ctx, cfg.Cache.RedisURL, cfg.Cache.RedisPrefix)
		if err != nil {
			return err
		}
		defer redisKV.Close()
		kv = redisKV
	default:
		kv = cache.NewMemoryKV()
	}
	store := cache.NewStore(kv, cache.Options{
		TTL:           cfg.Cache.TTL,
		EntryMaxBytes: cfg.Cache.EntryMaxBytes,
		MaxBytes:      cfg.Cache.MaxBytes,
		PrunePercent:  cfg.Cache.PrunePercent,
	})
	go store.StartMaintenance(ctx, cfg.Cache.MaintenanceInterval)

	// AI provider. A missing key is reported per request, not at startup.
	client, err := ai.New(ctx, ai.Config{
		Provider:    cfg.AI.Provider,
		OpenAIKey:   cfg.AI.OpenAIKey,
		OpenAIModel: cfg.AI.OpenAIModel,
		GeminiKey:   cfg.AI.GeminiKey,
		GeminiModel: cfg.AI.GeminiModel,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		if kind, ok := domain.ProviderKind(err); !ok || kind != domain.ProviderKeyMissing {
			return err
		}
		log.GlobalWarn("ai provider key missing, analysis disabled until configured", "provider", cfg.AI.Provider)
		client = ai.NewClient(ai.Unavailable(cfg.AI.Provider, err), cfg.AI.Timeout)
	}

	// Browser, only when enabled. Loader stays a nil interface otherwise.
	var loader web.PageLoader
	if cfg.Browser.Enabled {
		pool, err := browser.NewBrowserPool(browser.PoolConfig{
			ChromePath: cfg.Browser.ChromePath,
			RemoteURL:  cfg.Browser.RemoteURL,
		})
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = browser.NewLoader(pool, cfg.Browser.LoadTimeout)
	}

	prefs, err := config.LoadPreferences(cfg.PreferencesPath)
	if err != nil {
		return err
	}

	// Use cases
	handlers := web.NewHandlers(web.Deps{
		Adapters:    registry,
		Extract:     usecases.NewExtractThreadUseCase(registry),
		Draft:       usecases.NewGetDraftUseCase(registry),
		Insert:      usecases.NewInsertTextUseCase(registry),
		Analyze:     usecases.NewAnalyzeThreadUseCase(store, client),
		Rewrite:     usecases.NewRewriteDraftUseCase(client),
		Loader:      loader,
		Cache:       store,
		Preferences: prefs,
	})

	rateLimiter := web.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	rateLimiter.StartCleanup(ctx, 5*time.Minute)

	app := web.NewApp("ReplyKit")
	web.SetupRoutes(app, handlers, rateLimiter)

	errc := make(chan error, 1)
	go func() {
		log.GlobalInfo("starting server",
			"port", cfg.Port,
			"ai_provider", client.Provider(),
			"cache_backend", cfg.Cache.Backend,
			"browser", cfg.Browser.Enabled,
		)
		errc <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.GlobalInfo("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
