package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"millaudit/internal/scoring"
)

// ErrNoDatabase is returned alongside an otherwise usable Config when
// DATABASE_URL is unset; callers fall back to in-memory storage.
var ErrNoDatabase = errors.New("DATABASE_URL not set")

type Config struct {
	Env                string
	ListenAddr         string
	MaxInFlight        int
	DatabaseURL        string
	MaxConns           int32
	TemplateDir        string
	VerifyWorkers      int
	VerifyPollInterval time.Duration
	LogLevel           string
	Unanswered         scoring.UnansweredPolicy
	GradeBands         scoring.GradeBands
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func Load() (Config, error) {
	bands := scoring.DefaultGradeBands()
	cfg := Config{
		Env:         getenv("APP_ENV", "development"),
		ListenAddr:  getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		TemplateDir: os.Getenv("TEMPLATE_DIR"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
	}

	var errs []error
	var err error
	if cfg.MaxInFlight, err = getenvInt("MAX_IN_FLIGHT", 256); err != nil {
		errs = append(errs, err)
	}
	maxConns, err := getenvIntMax("MAX_CONNS", 10, math.MaxInt32)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.MaxConns = int32(maxConns)
	if cfg.VerifyWorkers, err = getenvInt("VERIFY_WORKERS", 2); err != nil {
		errs = append(errs, err)
	}
	if cfg.VerifyPollInterval, err = getenvDuration("VERIFY_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		errs = append(errs, err)
	}
	if cfg.Unanswered, err = scoring.ParseUnansweredPolicy(os.Getenv("UNANSWERED_POLICY")); err != nil {
		errs = append(errs, fmt.Errorf("UNANSWERED_POLICY: %w", err))
	}
	if bands.Excellent, err = getenvFloat("GRADE_EXCELLENT", bands.Excellent); err != nil {
		errs = append(errs, err)
	}
	if bands.Satisfactory, err = getenvFloat("GRADE_SATISFACTORY", bands.Satisfactory); err != nil {
		errs = append(errs, err)
	}
	if bands.NeedsImprovement, err = getenvFloat("GRADE_NEEDS_IMPROVEMENT", bands.NeedsImprovement); err != nil {
		errs = append(errs, err)
	}
	if !(bands.Excellent >= bands.Satisfactory && bands.Satisfactory >= bands.NeedsImprovement) {
		errs = append(errs, fmt.Errorf("grade bands must descend: excellent %v, satisfactory %v, needs improvement %v",
			bands.Excellent, bands.Satisfactory, bands.NeedsImprovement))
	}
	cfg.GradeBands = bands
	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}

	if cfg.DatabaseURL == "" {
		// Not fatal for local runs; callers decide.
		return cfg, ErrNoDatabase
	}
	return cfg, nil
}

// EngineOptions turns the scoring settings into engine options.
func (c Config) EngineOptions() []scoring.Option {
	return []scoring.Option{
		scoring.WithGradeBands(c.GradeBands),
		scoring.WithUnansweredPolicy(c.Unanswered),
	}
}

func getenvInt(key string, def int) (int, error) {
	return getenvIntMax(key, def, math.MaxInt)
}

// getenvIntMax reads a non-negative integer no larger than max.
func getenvIntMax(key string, def, max int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def, fmt.Errorf("%s: want a non-negative integer, got %q", key, v)
	}
	if n > max {
		return def, fmt.Errorf("%s: %d exceeds the maximum of %d", key, n, max)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 100 {
		return def, fmt.Errorf("%s: want a percentage in [0, 100], got %q", key, v)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def, fmt.Errorf("%s: want a positive duration, got %q", key, v)
	}
	return d, nil
}
