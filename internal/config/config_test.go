package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DEBIT_GATEWAY__BASE_URL", "https://payliance.example.com")
	t.Setenv("DEBIT_GATEWAY__AUTH_TOKEN", "test-token")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Gateway.ConnectTimeout != 10*time.Second {
		t.Errorf("expected connect timeout 10s, got %v", cfg.Gateway.ConnectTimeout)
	}
	if cfg.Gateway.RequestTimeout != 30*time.Second {
		t.Errorf("expected request timeout 30s, got %v", cfg.Gateway.RequestTimeout)
	}
	if cfg.Queue.Topic != "transactions" {
		t.Errorf("expected default topic transactions, got %s", cfg.Queue.Topic)
	}
	if cfg.Queue.DLQTopic != "transactions.dlq" {
		t.Errorf("expected default dlq topic transactions.dlq, got %s", cfg.Queue.DLQTopic)
	}
	if cfg.Queue.MaxDeliveries != 5 {
		t.Errorf("expected max deliveries 5, got %d", cfg.Queue.MaxDeliveries)
	}
	if cfg.Database.Enabled() {
		t.Error("expected database to be disabled without a host")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DEBIT_GATEWAY__BASE_URL", "https://payliance.example.com")
	t.Setenv("DEBIT_GATEWAY__AUTH_TOKEN", "test-token")
	t.Setenv("DEBIT_GATEWAY__REQUEST_TIMEOUT", "5s")
	t.Setenv("DEBIT_QUEUE__BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("DEBIT_QUEUE__MAX_DELIVERIES", "10")
	t.Setenv("DEBIT_DATABASE__HOST", "localhost")
	t.Setenv("DEBIT_LOGGER__LEVEL", "debug")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Gateway.RequestTimeout != 5*time.Second {
		t.Errorf("expected request timeout 5s, got %v", cfg.Gateway.RequestTimeout)
	}
	if len(cfg.Queue.Brokers) != 2 {
		t.Fatalf("expected 2 brokers, got %v", cfg.Queue.Brokers)
	}
	if cfg.Queue.Brokers[1] != "kafka-2:9092" {
		t.Errorf("expected second broker kafka-2:9092, got %s", cfg.Queue.Brokers[1])
	}
	if cfg.Queue.MaxDeliveries != 10 {
		t.Errorf("expected max deliveries 10, got %d", cfg.Queue.MaxDeliveries)
	}
	if !cfg.Database.Enabled() {
		t.Error("expected database to be enabled with a host set")
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logger.Level)
	}
}

func TestLoadConfig_MissingAuthToken(t *testing.T) {
	t.Setenv("DEBIT_GATEWAY__BASE_URL", "https://payliance.example.com")
	t.Setenv("DEBIT_GATEWAY__AUTH_TOKEN", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation error, got nil")
	}
}
