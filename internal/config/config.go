package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"fintrack/internal/analytics"
)

type Config struct {
	// HTTP Server
	Port               string   `env:"PORT" envDefault:"8081"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Storage
	DataBackend  string `env:"DATA_BACKEND" envDefault:"sqlite"`
	SQLiteDBPath string `env:"SQLITE_DB_PATH" envDefault:"./data/fintrack.db"`

	// Bearer token verification
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTIssuer   string        `env:"JWT_ISSUER"`
	JWTAudience string        `env:"JWT_AUDIENCE"`
	JWTLeeway   time.Duration `env:"JWT_LEEWAY" envDefault:"30s"`

	// AMQP
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"fintrack"`
	AMQPQueue    string `env:"AMQP_QUEUE" envDefault:"transaction_events"`

	// Forecasting service
	ForecastServiceURL string        `env:"FORECAST_SERVICE_URL" envDefault:"http://localhost:5001"`
	ForecastTimeout    time.Duration `env:"FORECAST_TIMEOUT" envDefault:"10s"`
	ForecastCacheTTL   time.Duration `env:"FORECAST_CACHE_TTL" envDefault:"5m"`
	ForecastMaxHorizon int           `env:"FORECAST_MAX_HORIZON" envDefault:"365"`

	// Budget analytics
	BudgetStrategy         string  `env:"BUDGET_STRATEGY" envDefault:"weighted"`
	BudgetAnomalyThreshold float64 `env:"BUDGET_ANOMALY_THRESHOLD" envDefault:"1.0"`

	// Google Sheets export (worker)
	GoogleSpreadsheetID      string `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName          string `env:"GOOGLE_SHEET_NAME" envDefault:"Transactions"`
	GoogleServiceAccountJSON string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleServiceAccountFile string `env:"GOOGLE_SERVICE_ACCOUNT_FILE"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the configuration from the environment. It does not validate.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings shared by every process and returns all
// problems at once.
func (c *Config) Validate() error {
	return joinProblems(c.commonProblems())
}

// ValidateServer additionally checks what the API server needs.
func (c *Config) ValidateServer() error {
	problems := c.commonProblems()

	if strings.TrimSpace(c.JWTSecret) == "" {
		problems = append(problems, "JWT_SECRET is required")
	} else if len(c.JWTSecret) < 32 {
		problems = append(problems, "JWT_SECRET must be at least 32 bytes")
	}
	if c.JWTLeeway < 0 || c.JWTLeeway > 5*time.Minute {
		problems = append(problems, fmt.Sprintf("invalid JWT leeway %v: must be between 0 and 5m", c.JWTLeeway))
	}

	if c.ForecastServiceURL != "" {
		if u, err := url.Parse(c.ForecastServiceURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems = append(problems, fmt.Sprintf("invalid forecast service URL '%s': must be an absolute http(s) URL", c.ForecastServiceURL))
		}
	}
	if c.ForecastTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid forecast timeout %v: must be positive", c.ForecastTimeout))
	}
	if c.ForecastCacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid forecast cache TTL %v: must not be negative", c.ForecastCacheTTL))
	}
	if c.ForecastMaxHorizon < 1 {
		problems = append(problems, fmt.Sprintf("invalid forecast max horizon %d: must be at least 1", c.ForecastMaxHorizon))
	}

	if _, err := c.BudgetPolicy(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.RateLimitPerMinute < 1 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if len(c.CORSAllowedOrigins) == 0 {
		problems = append(problems, "CORS_ALLOWED_ORIGINS must list at least one origin")
	}

	return joinProblems(problems)
}

// ValidateWorker additionally checks what the export worker needs.
func (c *Config) ValidateWorker() error {
	problems := c.commonProblems()
	if c.AMQPURL == "" {
		problems = append(problems, "AMQP_URL is required for the worker")
	}
	if c.GoogleSpreadsheetID != "" && c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		problems = append(problems, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided with GOOGLE_SPREADSHEET_ID")
	}
	return joinProblems(problems)
}

// BudgetPolicy builds the analytics policy from the budget settings.
func (c *Config) BudgetPolicy() (analytics.Policy, error) {
	p := analytics.DefaultPolicy()
	strategy, err := analytics.ParseStrategy(c.BudgetStrategy)
	if err != nil {
		return analytics.Policy{}, err
	}
	p.Strategy = strategy
	p.AnomalyThreshold = c.BudgetAnomalyThreshold
	if err := p.Validate(); err != nil {
		return analytics.Policy{}, err
	}
	return p, nil
}

func (c *Config) commonProblems() []string {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite]", c.DataBackend))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	return problems
}

func joinProblems(problems []string) error {
	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}
