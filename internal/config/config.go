package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all environment backed configuration for eval-api. All values
// are read once at process start; there is no hot reload.
type Config struct {
	// HTTP Server
	HTTPPort    int `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort int `env:"METRICS_PORT" envDefault:"9091"`

	// Evaluation engine
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	MaxSyntheticCases int           `env:"MAX_SYNTHETIC_CASES" envDefault:"10"`
	EvalConcurrency   int           `env:"EVAL_CONCURRENCY" envDefault:"5"`
	DefaultModel      string        `env:"DEFAULT_MODEL" envDefault:"gemini-2.5-flash"`
	EvaluatorModel    string        `env:"EVALUATOR_MODEL" envDefault:"gemini-2.5-flash"`

	// Rate limiting
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"10"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`

	// Server-side fallback credentials per provider
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY"`

	// Provider endpoints (override for testing or proxies)
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com/v1"`
	GoogleBaseURL    string `env:"GOOGLE_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`

	// Saved-key store
	KeystoreSecret string `env:"KEYSTORE_SECRET"`

	// Model catalog override
	ModelCatalogFile string `env:"MODEL_CATALOG_FILE"`

	// Observability / Logging
	ServiceName string `env:"SERVICE_NAME" envDefault:"eval-api"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RequestTimeout <= 0 {
		return nil, errors.New("REQUEST_TIMEOUT must be positive")
	}
	if cfg.EvalConcurrency < 1 {
		return nil, errors.New("EVAL_CONCURRENCY must be at least 1")
	}
	if cfg.MaxSyntheticCases < 1 || cfg.MaxSyntheticCases > 50 {
		return nil, fmt.Errorf("MAX_SYNTHETIC_CASES out of range: %d", cfg.MaxSyntheticCases)
	}
	if cfg.RateLimitRequests < 1 || cfg.RateLimitWindow <= 0 {
		return nil, errors.New("rate limit configuration invalid")
	}
	if strings.TrimSpace(cfg.DefaultModel) == "" || strings.TrimSpace(cfg.EvaluatorModel) == "" {
		return nil, errors.New("DEFAULT_MODEL and EVALUATOR_MODEL must be set")
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	return cfg, nil
}

var Version = "dev"

func IsDev() bool {
	return strings.HasPrefix(Version, "dev")
}
