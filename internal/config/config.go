package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Queue    QueueConfig    `koanf:"queue"`
	Database DatabaseConfig `koanf:"database"`
	Logger   LoggerConfig   `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

// GatewayConfig holds the connection settings for the external debit API.
// ConnectTimeout bounds connection establishment, RequestTimeout bounds the
// whole call including the response body.
type GatewayConfig struct {
	BaseURL        string        `koanf:"base_url" validate:"required"`
	AuthToken      string        `koanf:"auth_token" validate:"required"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
}

// QueueConfig describes the broker side of the pipeline. MaxDeliveries is the
// number of delivery attempts a message gets before it is dead-lettered.
type QueueConfig struct {
	Brokers       []string `koanf:"brokers" validate:"required"`
	Topic         string   `koanf:"topic" validate:"required"`
	GroupID       string   `koanf:"group_id" validate:"required"`
	DLQTopic      string   `koanf:"dlq_topic" validate:"required"`
	MaxDeliveries int      `koanf:"max_deliveries" validate:"required"`
	Concurrency   int64    `koanf:"concurrency" validate:"required"`
}

// DatabaseConfig is optional: when Host is unset the service runs without a
// transaction store and debit payloads carry request-level data only.
type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

// Enabled reports whether a transaction store is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// defaults is the base configuration layer; environment variables override it.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"primary.env":                 "development",
		"server.port":                 "8080",
		"server.read_timeout":         "15s",
		"server.write_timeout":        "45s",
		"server.idle_timeout":         "60s",
		"gateway.connect_timeout":     "10s",
		"gateway.request_timeout":     "30s",
		"queue.brokers":               []string{"localhost:9092"},
		"queue.topic":                 "transactions",
		"queue.group_id":              "echeck-debit-worker",
		"queue.dlq_topic":             "transactions.dlq",
		"queue.max_deliveries":        5,
		"queue.concurrency":           4,
		"database.port":               5432,
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     4,
		"database.max_idle_conns":     1,
		"database.conn_max_lifetime":  "30m",
		"database.conn_max_idle_time": "5m",
		"logger.level":                "info",
		"logger.format":               "json",
	}
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load default configuration", "error", err)
		return nil, err
	}

	err := k.Load(env.Provider("DEBIT_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "DEBIT_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
