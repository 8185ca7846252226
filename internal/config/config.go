package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the report bot.
type Config struct {
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"report-bot"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"console"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`

	TelegramToken   string `env:"TELEGRAM_TOKEN"`
	TelegramAPIBase string `env:"TELEGRAM_API_BASE" envDefault:"https://api.telegram.org"`
	WebhookSecret   string `env:"TELEGRAM_WEBHOOK_SECRET" envDefault:""`

	SpreadsheetID   string `env:"SPREADSHEET_ID"`
	GoogleCredsPath string `env:"GOOGLE_CREDS_PATH"`
	SheetsAPIBase   string `env:"SHEETS_API_BASE" envDefault:"https://sheets.googleapis.com"`
	SheetsTokenURL  string `env:"SHEETS_TOKEN_URL" envDefault:""`

	IdleTimeout          time.Duration `env:"CONVERSATION_IDLE_TIMEOUT" envDefault:"10m"`
	SweepInterval        time.Duration `env:"IDLE_SWEEP_INTERVAL" envDefault:"30s"`
	PrevPeriodOffsetDays int           `env:"ZNP_PREV_PERIOD_OFFSET_DAYS" envDefault:"32"`
	ReferenceCacheTTL    time.Duration `env:"REFERENCE_CACHE_TTL" envDefault:"2m"`
	DedupCapacity        int           `env:"DEDUP_CAPACITY" envDefault:"2000"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, fmt.Errorf("SPREADSHEET_ID is required")
	}
	if strings.TrimSpace(cfg.GoogleCredsPath) == "" {
		return nil, fmt.Errorf("GOOGLE_CREDS_PATH is required")
	}
	if cfg.IdleTimeout <= 0 || cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("idle timeout and sweep interval must be positive")
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
