package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/SAP-F-2025/placement-service/internal/validator"
)

// LMS backends a launch can be connected to
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendNone     = "none"
)

type Config struct {
	Port        string     `validate:"required,numeric"`
	Environment string     `validate:"required,oneof=development staging production test"`
	LogLevel    slog.Level `validate:"-"`

	RedisURL    string
	DatabaseURL string
	LMSBackend  string `validate:"required,oneof=redis postgres memory none"`

	QuestionBankDir string `validate:"required"`

	// Result reporting
	ReportURL      string        `validate:"omitempty,url"`
	ReportXLSXPath string        `validate:"omitempty,endswith=.xlsx"`
	ReportTimeout  time.Duration `validate:"gt=0"`
	KafkaBrokers   []string      `validate:"dive,hostname_port"`
	ResultsTopic   string        `validate:"required"`

	SuspendDataLimit int           `validate:"gt=0,lte=4096"`
	SessionIdleTTL   time.Duration `validate:"gt=0"`
}

// LoadConfig reads an optional .env file, then the environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a validated config from a variable lookup
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		Port:            get("PORT", "8080"),
		Environment:     get("ENVIRONMENT", "development"),
		RedisURL:        get("REDIS_URL", ""),
		DatabaseURL:     get("DATABASE_URL", ""),
		QuestionBankDir: get("QUESTION_BANK_DIR", "./banks"),
		ReportURL:       get("REPORT_URL", ""),
		ReportXLSXPath:  get("REPORT_XLSX_PATH", ""),
		ResultsTopic:    get("RESULTS_TOPIC", "placement.results"),
	}

	level, err := parseLevel(get("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	cfg.LMSBackend = get("LMS_BACKEND", defaultBackend(cfg))

	if brokers := get("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if cfg.SuspendDataLimit, err = strconv.Atoi(get("SUSPEND_DATA_LIMIT", "4000")); err != nil {
		return nil, fmt.Errorf("invalid SUSPEND_DATA_LIMIT: %w", err)
	}
	if cfg.SessionIdleTTL, err = time.ParseDuration(get("SESSION_IDLE_TTL", "2h")); err != nil {
		return nil, fmt.Errorf("invalid SESSION_IDLE_TTL: %w", err)
	}
	if cfg.ReportTimeout, err = time.ParseDuration(get("REPORT_TIMEOUT", "15s")); err != nil {
		return nil, fmt.Errorf("invalid REPORT_TIMEOUT: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field rules and that the chosen backend has its store
func (c *Config) Validate() error {
	if err := validator.New().Validate(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	switch {
	case c.LMSBackend == BackendRedis && c.RedisURL == "":
		return fmt.Errorf("invalid configuration: LMS_BACKEND=redis requires REDIS_URL")
	case c.LMSBackend == BackendPostgres && c.DatabaseURL == "":
		return fmt.Errorf("invalid configuration: LMS_BACKEND=postgres requires DATABASE_URL")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func defaultBackend(c *Config) string {
	switch {
	case c.RedisURL != "":
		return BackendRedis
	case c.DatabaseURL != "":
		return BackendPostgres
	default:
		return BackendMemory
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
