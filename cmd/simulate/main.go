package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-intake/internal/logger"
)

type SimConfig struct {
	APIBaseURL     string
	Duration       time.Duration
	Workers        int
	IntakeRatio    float64
	ReadRatio      float64
	DuplicateRatio float64 // share of intakes that replay an earlier Idempotency-Key
	Timezones      []string
	Seed           uint64
}

// IDPool collects IDs of committed records for the read operations.
type IDPool struct {
	mu  sync.RWMutex
	ids []uuid.UUID
}

func (p *IDPool) Add(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
}

func (p *IDPool) Pick(n int) (uuid.UUID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.ids) == 0 {
		return uuid.Nil, false
	}
	return p.ids[n%len(p.ids)], true
}

type Result int

const (
	ResultCommit Result = iota
	ResultClarify
	ResultRejected // 4xx including 409 and 429
	ResultError
)

type OperationMetrics struct {
	Total     int64
	Commit    int64
	Clarify   int64
	Rejected  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, res Result) {
	atomic.AddInt64(&om.Total, 1)
	switch res {
	case ResultCommit:
		atomic.AddInt64(&om.Commit, 1)
	case ResultClarify:
		atomic.AddInt64(&om.Clarify, 1)
	case ResultRejected:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, lo, hi, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	lo = latencies[0]
	hi = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, lo, hi, p50, p95
}

func percentileIndex(n, pct int) int {
	idx := n * pct / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Intake   OperationMetrics
	ReadByID OperationMetrics
	List     OperationMetrics

	// complete requests that still came back needing clarification
	CompleteClarified int64
}

type Simulator struct {
	config  SimConfig
	ids     IDPool
	keys    sync.Map // worker id -> last idempotency key
	client  *http.Client
	metrics Metrics
	log     *zap.Logger
}

func main() {
	_ = godotenv.Load()

	log, err := logger.New(getEnv("APP_ENV", "dev"), getEnv("LOG_LEVEL", "info"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	log.Info("simulator starting",
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("intake_ratio", cfg.IntakeRatio),
		zap.Float64("read_ratio", cfg.ReadRatio),
		zap.Strings("timezones", cfg.Timezones),
	)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log,
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:     strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Duration:       getDuration("SIM_DURATION", 30*time.Second),
		Workers:        getInt("SIM_WORKERS", 4),
		IntakeRatio:    getFloat("SIM_INTAKE_RATIO", 0.6),
		ReadRatio:      getFloat("SIM_READ_RATIO", 0.4),
		DuplicateRatio: getFloat("SIM_DUPLICATE_RATIO", 0.05),
		Timezones:      strings.Split(getEnv("SIM_TIMEZONES", "UTC,Asia/Kolkata,America/New_York"), ","),
		Seed:           uint64(getInt("SIM_SEED", 0)),
	}

	total := cfg.IntakeRatio + cfg.ReadRatio
	if total > 0 {
		cfg.IntakeRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.IntakeRatio <= 0 {
		return fmt.Errorf("SIM_INTAKE_RATIO must be > 0")
	}
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	seed := s.config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	gen := NewPhraseGenerator(seed + uint64(workerID))

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		roll := float64(gen.f.Number(0, 999)) / 1000
		switch {
		case roll < s.config.IntakeRatio:
			s.doIntake(ctx, workerID, gen)
		case n%2 == 0:
			s.doReadByID(ctx, gen.f.Number(0, 1<<30))
		default:
			s.doList(ctx)
		}
	}
}

func (s *Simulator) doIntake(ctx context.Context, workerID int, gen *PhraseGenerator) {
	req := gen.Next()
	tz := gen.f.RandomString(s.config.Timezones)

	key := uuid.NewString()
	if prev, ok := s.keys.Load(workerID); ok && float64(gen.f.Number(0, 999))/1000 < s.config.DuplicateRatio {
		key = prev.(string)
	}
	s.keys.Store(workerID, key)

	body, _ := json.Marshal(map[string]string{"text": req.Text, "timezone": strings.TrimSpace(tz)})

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments/text", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", key)

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	latency := time.Since(start)

	if err != nil {
		if ctx.Err() == nil {
			s.log.Debug("intake request failed", zap.Error(err))
			s.metrics.Intake.Record(latency, ResultError)
		}
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated:
		var created struct {
			Appointment struct {
				ID uuid.UUID `json:"id"`
			} `json:"appointment"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err == nil && created.Appointment.ID != uuid.Nil {
			s.ids.Add(created.Appointment.ID)
		}
		s.metrics.Intake.Record(latency, ResultCommit)
	case resp.StatusCode == http.StatusOK:
		if req.Intent == IntentComplete {
			atomic.AddInt64(&s.metrics.CompleteClarified, 1)
		}
		s.metrics.Intake.Record(latency, ResultClarify)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		s.metrics.Intake.Record(latency, ResultRejected)
	default:
		s.metrics.Intake.Record(latency, ResultError)
	}
}

func (s *Simulator) doReadByID(ctx context.Context, n int) {
	id, ok := s.ids.Pick(n)
	if !ok {
		return
	}
	s.doGet(ctx, &s.metrics.ReadByID, fmt.Sprintf("%s/appointments/%s", s.config.APIBaseURL, id))
}

func (s *Simulator) doList(ctx context.Context) {
	s.doGet(ctx, &s.metrics.List, s.config.APIBaseURL+"/appointments?limit=20&offset=0")
}

func (s *Simulator) doGet(ctx context.Context, om *OperationMetrics, url string) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	if err != nil {
		if ctx.Err() == nil {
			om.Record(latency, ResultError)
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		om.Record(latency, ResultCommit)
	} else {
		om.Record(latency, ResultError)
	}
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Intake", &s.metrics.Intake, "Committed", "Clarify")
	if n := atomic.LoadInt64(&s.metrics.CompleteClarified); n > 0 {
		fmt.Printf("  Complete requests sent to clarification: %d\n\n", n)
	}
	printOperationReport("Read by ID", &s.metrics.ReadByID, "OK", "")
	printOperationReport("List", &s.metrics.List, "OK", "")
}

func printOperationReport(name string, om *OperationMetrics, okLabel, clarifyLabel string) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }

	commit := atomic.LoadInt64(&om.Commit)
	clarify := atomic.LoadInt64(&om.Clarify)
	rejected := atomic.LoadInt64(&om.Rejected)
	errs := atomic.LoadInt64(&om.Error)

	avg, lo, hi, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  %s: %d (%.1f%%)\n", okLabel, commit, pct(commit))
	if clarifyLabel != "" {
		fmt.Printf("  %s: %d (%.1f%%)\n", clarifyLabel, clarify, pct(clarify))
	}
	if rejected > 0 {
		fmt.Printf("  Rejected: %d (%.1f%%)\n", rejected, pct(rejected))
	}
	if errs > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errs, pct(errs))
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), lo.Round(time.Millisecond), hi.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
