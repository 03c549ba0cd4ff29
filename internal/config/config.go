package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/domain"
)

// Config holds all configuration for the Ledger Service
type Config struct {
	GRPCPort        string
	HTTPPort        string
	LogLevel        string
	ShutdownTimeout time.Duration
	Ledger          LedgerConfig
	RabbitMQ        RabbitMQConfig
}

// LedgerConfig holds ledger behaviour settings
type LedgerConfig struct {
	IDBase             domain.AccountID
	ConstructionPolicy domain.ConstructionPolicy
	StatementLimit     int
}

// RabbitMQConfig holds RabbitMQ connection configuration.
// An empty URL disables event publishing.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// Enabled reports whether a broker is configured.
func (c RabbitMQConfig) Enabled() bool {
	return c.URL != ""
}

var defaults = map[string]interface{}{
	"GRPC_PORT":                  "50051",
	"HTTP_PORT":                  "8080",
	"LOG_LEVEL":                  "info",
	"SHUTDOWN_TIMEOUT":           "10s",
	"LEDGER_ID_BASE":             int64(domain.DefaultIDBase),
	"LEDGER_CONSTRUCTION_POLICY": string(domain.PolicyLenient),
	"LEDGER_STATEMENT_LIMIT":     domain.DefaultStatementLimit,
	"RABBITMQ_URL":               "",
	"RABBITMQ_EXCHANGE":          "ledger.operations",
}

// Load reads configuration from environment variables and an optional .env
// file in the working directory, falling back to default values.
func Load() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Read the config file if it exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	policy, err := domain.ParseConstructionPolicy(v.GetString("LEDGER_CONSTRUCTION_POLICY"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_CONSTRUCTION_POLICY: %w", err)
	}

	idBase := v.GetInt64("LEDGER_ID_BASE")
	if idBase <= 0 {
		return nil, fmt.Errorf("invalid LEDGER_ID_BASE %q: must be a positive integer", v.GetString("LEDGER_ID_BASE"))
	}

	statementLimit := v.GetInt("LEDGER_STATEMENT_LIMIT")
	if statementLimit <= 0 {
		return nil, fmt.Errorf("invalid LEDGER_STATEMENT_LIMIT %q: must be a positive integer", v.GetString("LEDGER_STATEMENT_LIMIT"))
	}

	shutdownTimeout := v.GetDuration("SHUTDOWN_TIMEOUT")
	if shutdownTimeout <= 0 {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q", v.GetString("SHUTDOWN_TIMEOUT"))
	}

	return &Config{
		GRPCPort:        v.GetString("GRPC_PORT"),
		HTTPPort:        v.GetString("HTTP_PORT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		ShutdownTimeout: shutdownTimeout,
		Ledger: LedgerConfig{
			IDBase:             domain.AccountID(idBase),
			ConstructionPolicy: policy,
			StatementLimit:     statementLimit,
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("RABBITMQ_URL"),
			Exchange: v.GetString("RABBITMQ_EXCHANGE"),
		},
	}, nil
}
