package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-intake/internal/api"
	"github.com/hackgods/appointment-intake/internal/appointment"
	"github.com/hackgods/appointment-intake/internal/config"
	"github.com/hackgods/appointment-intake/internal/db"
	"github.com/hackgods/appointment-intake/internal/extract"
	"github.com/hackgods/appointment-intake/internal/extract/llm"
	"github.com/hackgods/appointment-intake/internal/extract/ocr"
	"github.com/hackgods/appointment-intake/internal/logger"
	"github.com/hackgods/appointment-intake/internal/normalize"
	redisclient "github.com/hackgods/appointment-intake/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("api-server failed", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("store", cfg.StoreDriver),
		zap.String("ocr_engine", cfg.OCREngine),
		zap.String("default_timezone", cfg.DefaultTimezone),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo   appointment.Repository
		pgPool *pgxpool.Pool
	)
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{}, log)
		cancelPg()
		if err != nil {
			return fmt.Errorf("postgres connection: %w", err)
		}
		defer pool.Close()

		pgRepo := appointment.NewPgRepository(pool)
		if err := pgRepo.EnsureSchema(rootCtx); err != nil {
			return err
		}
		repo, pgPool = pgRepo, pool
	default:
		repo = appointment.NewMemoryRepository()
		log.Warn("records are kept in memory and lost on restart")
	}

	llmCfg := llm.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		VisionModel: cfg.OpenAIVisionModel,
	}
	chat := llm.NewChatClient(llmCfg)

	var entities extract.EntityExtractor = llm.NewEntityExtractor(chat, llmCfg, log)

	var images extract.ImageTextExtractor
	switch cfg.OCREngine {
	case config.OCROpenAI:
		images = llm.NewVisionExtractor(chat, llmCfg, log)
	default:
		images = ocr.NewClient(ocr.Config{
			TesseractPath: cfg.TesseractPath,
			Languages:     cfg.TesseractLang,
		}, log)
	}

	var (
		rdb   *redis.Client
		guard redisclient.Guard
	)
	if cfg.RedisEnabled {
		client, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("redis connection: %w", err)
		}
		defer func() {
			if err := client.Close(); err != nil {
				log.Warn("error closing redis", zap.Error(err))
			}
		}()
		log.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

		rdb = client
		entities = redisclient.NewCachedExtractor(entities, client, cfg.ExtractCacheTTL, log)
		guard = redisclient.NewIdempotencyGuard(client, cfg.IdempotencyTTL)
	}

	pipeline, err := normalize.NewPipeline(cfg.DefaultTimezone, time.Now)
	if err != nil {
		return err
	}

	svc := appointment.NewService(appointment.Deps{
		Repo:          repo,
		Entities:      entities,
		Images:        images,
		Pipeline:      pipeline,
		Guard:         guard,
		Logger:        log,
		MaxImageBytes: cfg.MaxImageBytes,
	})

	router := api.NewRouter(api.RouterConfig{
		Service:       svc,
		PgPool:        pgPool,
		Redis:         rdb,
		Env:           cfg.Env,
		Version:       version,
		Logger:        log,
		MaxImageBytes: cfg.MaxImageBytes,
		RateLimitRPS:  cfg.RateLimitRPS,
		RateBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-rootCtx.Done():
	}

	log.Info("shutting down api-server", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
