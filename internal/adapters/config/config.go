package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"phi/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	AI            AIConfig
	Agent         AgentConfig
	Search        SearchConfig
	Storage       StorageConfig
	Ledger        LedgerConfig
	Content       ContentConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"phi"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8000"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
}

// PostgresConfig is optional: an empty host means the flat-file stores are used.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"phi"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) Enabled() bool { return c.Host != "" }

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Enabled() bool { return c.Host != "" }

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

type AIConfig struct {
	OpenAIKey    string        `envconfig:"OPENAI_API_KEY"`
	BaseURL      string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	Model        string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	Temperature  float64       `envconfig:"OPENAI_TEMPERATURE" default:"0.2"`
	MaxTokens    int           `envconfig:"OPENAI_MAX_TOKENS" default:"800"`
	Timeout      time.Duration `envconfig:"OPENAI_TIMEOUT" default:"30s"`
	ReqPerMinute int           `envconfig:"OPENAI_REQ_PER_MINUTE" default:"500"`
}

// AgentConfig bounds the forecast reasoning loop
type AgentConfig struct {
	MaxSteps         int           `envconfig:"AGENT_MAX_STEPS" default:"4"`
	ExecutionTimeout time.Duration `envconfig:"AGENT_EXECUTION_TIMEOUT" default:"45s"`
	SearchToolName   string        `envconfig:"AGENT_SEARCH_TOOL" default:"tavily-search"`
	Version          string        `envconfig:"AGENT_VERSION" default:"v0.1-spoon"`
}

// SearchConfig is optional: without an API key the search tool is not registered.
type SearchConfig struct {
	TavilyKey  string        `envconfig:"TAVILY_API_KEY"`
	BaseURL    string        `envconfig:"TAVILY_BASE_URL" default:"https://api.tavily.com"`
	MaxResults int           `envconfig:"TAVILY_MAX_RESULTS" default:"5"`
	Timeout    time.Duration `envconfig:"TAVILY_TIMEOUT" default:"15s"`
}

func (c SearchConfig) Enabled() bool { return c.TavilyKey != "" }

type StorageConfig struct {
	Backend         string        `envconfig:"STORAGE_BACKEND" default:"file"` // file|postgres
	DataDir         string        `envconfig:"STORAGE_DATA_DIR" default:"data"`
	PersonaCacheTTL time.Duration `envconfig:"PERSONA_CACHE_TTL" default:"10m"`
}

type LedgerConfig struct {
	Enabled  bool   `envconfig:"LEDGER_ENABLED" default:"true"`
	Path     string `envconfig:"LEDGER_PATH" default:"data/ledger"`
	InMemory bool   `envconfig:"LEDGER_IN_MEMORY" default:"false"`
	// SignerKey is the hex secp256k1 key whose address owns anchored records.
	SignerKey string `envconfig:"LEDGER_SIGNER_KEY"`
}

type ContentConfig struct {
	Path     string `envconfig:"CONTENT_STORE_PATH" default:"data/objects"`
	InMemory bool   `envconfig:"CONTENT_STORE_IN_MEMORY" default:"false"`
}

type ErrorTrackingConfig struct {
	Enabled     bool    `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string  `envconfig:"SENTRY_DSN"`
	Environment string  `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
	SampleRate  float64 `envconfig:"SENTRY_SAMPLE_RATE" default:"1.0"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	if c.Agent.MaxSteps < 1 {
		return errors.NewValidationError("AGENT_MAX_STEPS", "must be at least 1", c.Agent.MaxSteps)
	}
	switch c.Storage.Backend {
	case "file":
	case "postgres":
		if !c.Postgres.Enabled() {
			return errors.NewValidationError("POSTGRES_HOST", "required when STORAGE_BACKEND=postgres", "")
		}
	default:
		return errors.NewValidationError("STORAGE_BACKEND", "must be file or postgres", c.Storage.Backend)
	}
	return nil
}
