package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Service       IntakeService
	PgPool        *pgxpool.Pool // nil when records are kept in memory
	Redis         *redis.Client // nil when Redis is disabled
	Env           string
	Version       string
	Logger        *zap.Logger
	MaxImageBytes int
	RateLimitRPS  float64 // 0 disables rate limiting
	RateBurst     int
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/", listRecordsHandler(cfg.Service, logger))
		r.Get("/{id}", getRecordHandler(cfg.Service, logger))

		// rate limiting applies to intake only
		r.Group(func(r chi.Router) {
			if cfg.RateLimitRPS > 0 {
				r.Use(RateLimitMiddleware(NewRateLimiter(cfg.RateLimitRPS, cfg.RateBurst)))
			}
			r.Post("/text", textIntakeHandler(cfg.Service, logger))
			r.Post("/image", imageIntakeHandler(cfg.Service, cfg.MaxImageBytes, logger))
		})
	})

	return r
}
