// Package config provides configuration structures and validation for the
// application. Fee rates, the referral bonus, and the token conversion rate
// are explicit configuration here rather than ambient globals, so every
// component that prices an operation receives its numbers by injection.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration with settings for all
// components. Validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Gateway     GatewayConfig
	Rates       RatesConfig
	Fees        FeesConfig
	Referral    ReferralConfig
	WorkerPool  WorkerPoolConfig
	Reconciler  ReconcilerConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration for the notification store
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis configuration for the rate cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	SettlementTopic   string // Gateway callback events consumed by the settlement processor
	EventTopic        string // Wallet/task events published best-effort
	DLQTopic          string
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
}

// GatewayConfig contains payment gateway client configuration
type GatewayConfig struct {
	BaseURL   string
	SecretKey string
	// Timeout bounds every outbound call; an expired deadline is treated as
	// an unknown outcome, never a failure
	Timeout time.Duration
}

// RatesConfig contains currency conversion configuration
type RatesConfig struct {
	APIBaseURL   string
	APIKey       string
	TokenRateUSD decimal.Decimal // USD value of one GoToken
	DefaultFiat  string
	CacheTTL     time.Duration
}

// FeesConfig contains the fee schedule for wallet operations
type FeesConfig struct {
	SwapRate       decimal.Decimal // Fraction of the swapped amount
	SendRate       decimal.Decimal
	WithdrawalRate decimal.Decimal
	WithdrawalBase decimal.Decimal // Flat fee in GoToken added on withdrawals
}

// ReferralConfig contains referral bonus configuration
type ReferralConfig struct {
	BonusToken decimal.Decimal
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int
}

// ReconcilerConfig controls the pending-entry reconciliation poller
type ReconcilerConfig struct {
	PollingInterval time.Duration
	BatchSize       int
	// MinAge is how long an entry stays pending before reconciliation
	MinAge time.Duration
}

// validate performs comprehensive validation of all configuration values
func (c *Config) validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}

	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}

	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.SettlementTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_SETTLEMENT_TOPIC is required")
	}
	if c.Kafka.EventTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_EVENT_TOPIC is required")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}

	if c.Gateway.BaseURL == "" {
		validationErrors = append(validationErrors, "GATEWAY_BASE_URL is required")
	}
	if c.Gateway.Timeout <= 0 {
		validationErrors = append(validationErrors, "GATEWAY_TIMEOUT must be greater than 0")
	}

	if c.Rates.APIBaseURL == "" {
		validationErrors = append(validationErrors, "RATES_API_BASE_URL is required")
	}
	if c.Rates.TokenRateUSD.LessThanOrEqual(decimal.Zero) {
		validationErrors = append(validationErrors, "RATES_TOKEN_RATE_USD must be greater than 0")
	}
	if c.Rates.DefaultFiat == "" {
		validationErrors = append(validationErrors, "RATES_DEFAULT_FIAT is required")
	}
	if c.Rates.CacheTTL <= 0 {
		validationErrors = append(validationErrors, "RATES_CACHE_TTL must be greater than 0")
	}

	if c.Fees.SwapRate.IsNegative() {
		validationErrors = append(validationErrors, "FEE_SWAP_RATE cannot be negative")
	}
	if c.Fees.SendRate.IsNegative() {
		validationErrors = append(validationErrors, "FEE_SEND_RATE cannot be negative")
	}
	if c.Fees.WithdrawalRate.IsNegative() {
		validationErrors = append(validationErrors, "FEE_WITHDRAWAL_RATE cannot be negative")
	}
	if c.Fees.WithdrawalBase.IsNegative() {
		validationErrors = append(validationErrors, "FEE_WITHDRAWAL_BASE cannot be negative")
	}

	if c.Referral.BonusToken.LessThanOrEqual(decimal.Zero) {
		validationErrors = append(validationErrors, "REFERRAL_BONUS_TOKEN must be greater than 0")
	}

	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if c.Reconciler.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "RECONCILER_POLLING_INTERVAL must be greater than 0")
	}
	if c.Reconciler.BatchSize <= 0 {
		validationErrors = append(validationErrors, "RECONCILER_BATCH_SIZE must be greater than 0")
	}
	if c.Reconciler.MinAge <= 0 {
		validationErrors = append(validationErrors, "RECONCILER_MIN_AGE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
