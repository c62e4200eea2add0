// Package config provides configuration structures and validation for the application.
// It handles environment-based configuration for both binaries: the authorizer (webhook
// gateway and decision path) and the reconciler (charge-outcome consumer and projections).
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Webhook     WebhookConfig
	Decision    DecisionConfig
	Pricing     PricingConfig
	Funding     FundingConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
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
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// WebhookConfig contains inbound event authentication settings
type WebhookConfig struct {
	SigningSecret string        // Shared secret used for HMAC-SHA256 signatures
	Tolerance     time.Duration // Maximum age of a signature timestamp
	APIVersion    string        // Echoed back on authorization decision responses
	MaxBodyBytes  int64
}

// DecisionConfig bounds the synchronous authorization path
type DecisionConfig struct {
	Deadline      time.Duration // Wall-clock budget for a whole decision request
	ChargeTimeout time.Duration // Must be strictly shorter than Deadline
	RecordTimeout time.Duration // Reserved after the charge to write its outcome
	CacheTTL      time.Duration // How long a decision stays in the redelivery cache
}

// PricingConfig contains markup settings. FeeRate is a decimal string ("0.05").
type PricingConfig struct {
	FeeRate       string
	FixedFeeCents int64
}

// FundingConfig contains the funding processor client settings
type FundingConfig struct {
	BaseURL  string
	APIKey   string
	Currency string
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers             string
	ReconciliationTopic string
	NumPartitions       int // Number of partitions for topics
	ReplicationFactor   int // Replication factor for topics
	ConsumerGroup       string
	MinBytes            int
	MaxBytes            int
	MaxWait             time.Duration
	StartOffset         int64
	DLQTopic            string // Topic for Dead Letter Queue
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis configuration for the decision cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int // Maximum number of retry attempts for outbox messages
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
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

	// Validate Webhook config
	if c.Webhook.SigningSecret == "" {
		validationErrors = append(validationErrors, "WEBHOOK_SIGNING_SECRET is required")
	}
	if c.Webhook.Tolerance <= 0 {
		validationErrors = append(validationErrors, "WEBHOOK_TOLERANCE must be greater than 0")
	}
	if c.Webhook.MaxBodyBytes <= 0 {
		validationErrors = append(validationErrors, "WEBHOOK_MAX_BODY_BYTES must be greater than 0")
	}

	// Validate Decision config
	if c.Decision.Deadline <= 0 {
		validationErrors = append(validationErrors, "DECISION_DEADLINE must be greater than 0")
	}
	if c.Decision.ChargeTimeout <= 0 {
		validationErrors = append(validationErrors, "DECISION_CHARGE_TIMEOUT must be greater than 0")
	}
	if c.Decision.ChargeTimeout >= c.Decision.Deadline {
		validationErrors = append(validationErrors, "DECISION_CHARGE_TIMEOUT must be shorter than DECISION_DEADLINE")
	}
	if c.Decision.RecordTimeout <= 0 {
		validationErrors = append(validationErrors, "DECISION_RECORD_TIMEOUT must be greater than 0")
	}
	if c.Decision.RecordTimeout >= c.Decision.Deadline {
		validationErrors = append(validationErrors, "DECISION_RECORD_TIMEOUT must be shorter than DECISION_DEADLINE")
	}
	if c.Decision.CacheTTL < 0 {
		validationErrors = append(validationErrors, "DECISION_CACHE_TTL must not be negative")
	}

	// Validate Pricing config
	if rate, err := decimal.NewFromString(c.Pricing.FeeRate); err != nil {
		validationErrors = append(validationErrors, "PRICING_FEE_RATE must be a decimal number")
	} else if rate.IsNegative() {
		validationErrors = append(validationErrors, "PRICING_FEE_RATE must not be negative")
	}
	if c.Pricing.FixedFeeCents < 0 {
		validationErrors = append(validationErrors, "PRICING_FIXED_FEE_CENTS must not be negative")
	}

	// Validate Funding config
	if c.Funding.BaseURL == "" {
		validationErrors = append(validationErrors, "FUNDING_BASE_URL is required")
	}
	if len(c.Funding.Currency) != 3 {
		validationErrors = append(validationErrors, "FUNDING_CURRENCY must be a 3-letter code")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.ReconciliationTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_RECONCILIATION_TOPIC is required")
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

	// Validate PostgreSQL config
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

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Redis is optional; an empty address disables the decision cache.
	if c.Redis.DB < 0 {
		validationErrors = append(validationErrors, "REDIS_DB must not be negative")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
