package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-intake/internal/appointment"
	"github.com/hackgods/appointment-intake/internal/config"
	"github.com/hackgods/appointment-intake/internal/db"
	"github.com/hackgods/appointment-intake/internal/logger"
	"github.com/hackgods/appointment-intake/internal/normalize"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

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

	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	count := 500
	if v := os.Getenv("SEED_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = n
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{}, log)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	repo := appointment.NewPgRepository(pool)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}

	pipeline, err := normalize.NewPipeline(cfg.DefaultTimezone, time.Now)
	if err != nil {
		log.Fatal("build pipeline", zap.Error(err))
	}

	committed, skipped, err := seedRecords(context.Background(), repo, pipeline, gofakeit.New(0), count, log)
	if err != nil {
		log.Fatal("seed records", zap.Error(err))
	}

	log.Info("seed complete", zap.Int("committed", committed), zap.Int("clarify_skipped", skipped))
}

// fakeEntities builds extractor-shaped output for a plausible request.
func fakeEntities(f *gofakeit.Faker) (normalize.RawEntities, string) {
	dept := f.RandomString(specialties)
	date := f.RandomString([]string{"today", "tomorrow", "day after tomorrow", "next " + strings.ToLower(f.WeekDay())})
	clock := fmt.Sprintf("%d%s", f.Number(1, 12), f.RandomString([]string{"am", "pm"}))
	conf := f.Float64Range(0.5, 1)

	text := fmt.Sprintf("%s would like a %s appointment %s at %s", f.Name(), dept, date, clock)
	return normalize.RawEntities{
		DatePhrase: &date,
		TimePhrase: &clock,
		Department: &dept,
		Confidence: &conf,
		IsClear:    conf >= normalize.MinConfidence,
	}, text
}

func seedRecords(ctx context.Context, repo appointment.Repository, pipeline *normalize.Pipeline, f *gofakeit.Faker, count int, log *zap.Logger) (committed, skipped int, err error) {
	log.Info("seeding appointment records", zap.Int("count", count))

	for i := 0; i < count; i++ {
		entities, text := fakeEntities(f)

		res, err := pipeline.Run(entities, "")
		if err != nil {
			return committed, skipped, err
		}
		if !res.Decision.IsCommit() {
			skipped++
			continue
		}

		rec := &appointment.Record{
			ID:                uuid.New(),
			RawText:           text,
			ExtractedEntities: entities,
			NormalizedData:    res.Normalized,
			Department:        appointment.ResolveDepartment(res.Normalized, entities),
			Status:            appointment.StatusSuccess,
			Source:            appointment.SourceText,
			CreatedAt:         time.Now().UTC(),
		}
		if err := repo.Insert(ctx, rec); err != nil {
			return committed, skipped, fmt.Errorf("insert record %d: %w", i, err)
		}
		committed++

		if committed%100 == 0 {
			log.Info("records seeded", zap.Int("committed", committed), zap.Int("of", count))
		}
	}
	return committed, skipped, nil
}
