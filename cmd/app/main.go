package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-task-orchestrator/internal/config"
	"ai-task-orchestrator/internal/domain/ports/adapter"
	aiAdapters "ai-task-orchestrator/internal/infra/adapters/ai"
	pg "ai-task-orchestrator/internal/infra/db/postgres"
	"ai-task-orchestrator/internal/infra/logging"
	"ai-task-orchestrator/internal/infra/metrics"
	"ai-task-orchestrator/internal/infra/queue"
	"ai-task-orchestrator/internal/infra/ratelimit"
	red "ai-task-orchestrator/internal/infra/redis"
	"ai-task-orchestrator/internal/infra/web"
	"ai-task-orchestrator/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop provider, no credit charges)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	counters := red.NewCounterStore(redisClient)

	ipLimiter := ratelimit.NewLimiter(counters, "ip", cfg.Limits.IP.Window, cfg.Limits.IP.MaxRequests)
	userLimiter := ratelimit.NewLimiter(counters, "user", cfg.Limits.User.Window, cfg.Limits.User.MaxRequests)

	// ---- Repositories ----
	taskRepo := pg.NewTaskRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	keyRepo := pg.NewProviderKeyRepo(pool)

	// ---- AI providers ----
	byProvider := map[string]adapter.AIProviderAdapter{}
	if cfg.AI.OpenAIKey != "" {
		openai, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.OpenAIBaseURL, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		byProvider["openai"] = openai
	}
	if cfg.AI.GeminiKey != "" {
		gemini, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		byProvider["gemini"] = gemini
	}
	if cfg.Runtime.Dev || len(byProvider) == 0 {
		if len(byProvider) == 0 && !cfg.Runtime.Dev {
			logger.Fatal().Msg("no AI provider configured: set ai.openai_key or ai.gemini_key")
		}
		byProvider["noop"] = aiAdapters.NewNoopAdapter()
	}
	registry := aiAdapters.NewRegistry(firstProvider(byProvider), byProvider, nil)
	provider := aiAdapters.NewLimitedAI(registry, cfg.AI.ConcurrentLimit)

	// ---- Use cases ----
	ledger := usecase.NewCreditLedger(userRepo, userRepo, tm, logger)
	pricing := usecase.NewPricing(cfg.Credits)
	queues := queue.NewManager(cfg.Queue.Capacity)
	router := usecase.NewRouter(taskRepo, keyRepo, ledger, pricing, queues, registry, counters,
		cfg.AI.DefaultModel, cfg.Queue.MaxRetries, cfg.Runtime.Dev, logger)
	planner := usecase.NewPlanner(nil, logger)
	executor := usecase.NewChainExecutor(router, cfg.Chain.PollInterval, cfg.Chain.StepTimeout, logger)

	// ---- Workers ----
	processor := queue.NewProcessor(taskRepo, provider, ledger, queues, cfg.Queue.RetryDelay, logger)
	pool2 := queue.NewPool(queues, processor, cfg.Queue.Workers, logger)
	pool2.Start(ctx)

	// ---- HTTP ----
	server := web.NewServer(planner, executor, router, ipLimiter, userLimiter, cfg.Server.JWTSecret, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Routes(),
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	cancel()
	pool2.Wait()
	logger.Info().Msg("bye")
}

func firstProvider(byProvider map[string]adapter.AIProviderAdapter) string {
	for _, name := range []string{"openai", "gemini", "noop"} {
		if _, ok := byProvider[name]; ok {
			return name
		}
	}
	return "noop"
}
