package config

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config collects every environment driven setting used by the binaries. It
// is constructed once at startup and passed by reference; nothing reads the
// environment after Load returns.
type Config struct {
	EvidentlyURL   string        `env:"EVIDENTLY_URL" envDefault:"http://localhost:8000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	S3EndpointURL     string `env:"S3_ENDPOINT_URL" envDefault:"http://localhost:9000"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" envDefault:"minioadmin"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" envDefault:"minioadmin123"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	DefaultBucket     string `env:"DEFAULT_BUCKET" envDefault:"evidently"`

	WorkspaceDir string `env:"WORKSPACE_DIR" envDefault:"./workspace"`

	// Provisioning poll loop.
	PollInterval time.Duration `env:"PROVISION_POLL_INTERVAL" envDefault:"2s"`
	MaxWait      time.Duration `env:"PROVISION_MAX_WAIT" envDefault:"2m"`

	// Alerting threshold checked by the demo runner against the drift share
	// reported by the monitoring service.
	DriftAlertThreshold float64 `env:"DRIFT_ALERT_THRESHOLD" envDefault:"0.5"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// LoadEnvFile loads environment variables from the file given with the -env
// flag, if any. Must be called before flag.Parse consumers.
func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return &cfg, nil
}

// SetupLogging installs a slog text handler at the configured level.
func (c *Config) SetupLogging() {
	var level slog.Level
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
