package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"flipbook/internal/config"
	"flipbook/internal/library"
	"flipbook/internal/ratelimit"
	"flipbook/internal/server"
	"flipbook/internal/share"
	"flipbook/internal/upload"
	"flipbook/internal/usertoken"
	"flipbook/internal/util"
	"flipbook/pkg/ai"
	"flipbook/pkg/cache"
	"flipbook/pkg/storage"
	"flipbook/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	tokenVerifier, err := usertoken.NewVerifier(usertoken.Config{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
	})
	if err != nil {
		log.Fatalf("failed to init token verifier: %v", err)
	}

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	objects, err := storage.NewMinioStore(storage.Config{
		Endpoint:      cfg.MinioEndpoint,
		AccessKey:     cfg.MinioAccessKey,
		SecretKey:     cfg.MinioSecretKey,
		Bucket:        cfg.MinioBucket,
		UseSSL:        cfg.MinioUseSSL,
		PublicBaseURL: cfg.MinioPublicBaseURL,
	})
	if err != nil {
		log.Fatalf("failed to init object store: %v", err)
	}

	var redisClient *redis.Client
	var summaryCache *cache.SummaryCache
	var summaryLimiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		summaryCache = cache.NewSummaryCache(redisClient, 0)
		summaryLimiter, err = ratelimit.NewFixedWindowLimiter(
			redisClient, "flipbook:ratelimit", cfg.SummaryRateLimit, cfg.SummaryRateWindow())
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
	} else {
		logger.Warn("redis not configured, summary caching and rate limiting disabled")
	}

	var summarizerOpts []ai.Option
	if cfg.GeminiModel != "" {
		summarizerOpts = append(summarizerOpts, ai.WithModel(cfg.GeminiModel))
	}
	summarizer := ai.NewSummarizer(cfg.GeminiAPIKey, summarizerOpts...)
	if !summarizer.Configured() {
		logger.Warn("gemini api key not configured, summaries disabled")
	}

	manager := library.NewManager(st, objects, library.NewHTTPHydrator(nil), logger)
	loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := manager.LoadAll(loadCtx); err != nil {
		cancel()
		log.Fatalf("failed to load library: %v", err)
	}
	cancel()

	pipeline := upload.New(upload.Config{
		Store:        st,
		Objects:      objects,
		Manager:      manager,
		MaxFileBytes: cfg.MaxUploadBytes,
		Logger:       logger,
	})

	httpServer := server.New(server.Config{
		Manager:        manager,
		Pipeline:       pipeline,
		Share:          share.NewService(st),
		Summarizer:     summarizer,
		SummaryCache:   summaryCache,
		TokenVerifier:  tokenVerifier,
		SummaryLimiter: summaryLimiter,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("flipbook server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
