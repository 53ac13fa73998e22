// Package config loads and validates service config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds ingestion service configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// MetricsAddr is the address the Prometheus /metrics endpoint listens on; empty disables it.
	MetricsAddr string `mapstructure:"METRICS_ADDR"`
	// DatabaseURL is the Postgres DSN; empty disables persistence.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; only needed to issue reporter tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; when set, reporters must present a bearer token.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim of reporter tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim of reporter tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTTTL is the reporter token lifetime (e.g. "720h").
	JWTTTL string `mapstructure:"JWT_TTL"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	// When set, accepted reports are published to TelemetryKafkaTopic.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for accepted reports.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is where the worker pushes report lines (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// RedisURL enables the shared dedupe guard (e.g. redis://localhost:6379/0); empty uses an in-memory guard.
	RedisURL string `mapstructure:"REDIS_URL"`
	// DedupeTTL is how long a run id stays claimed (e.g. "24h").
	DedupeTTL string `mapstructure:"DEDUPE_TTL"`
	// PolicyFile is a Rego file replacing the built-in ingestion policy.
	PolicyFile string `mapstructure:"POLICY_FILE"`

	// OTelEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTelInsecure disables TLS to the collector.
	OTelInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// OTelServiceName is the service.name resource attribute.
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9100")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "runtelemetry")
	v.SetDefault("JWT_AUDIENCE", "runtelemetry-ingest")
	v.SetDefault("JWT_TTL", "720h") // 30d
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "run-telemetry")
	v.SetDefault("KAFKA_GROUP_ID", "run-telemetry-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("DEDUPE_TTL", "24h")
	v.SetDefault("POLICY_FILE", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "runtelemetry")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if cfg.JWTPublicKey != "" && (cfg.JWTIssuer == "" || cfg.JWTAudience == "") {
		return nil, errors.New("config: JWT_ISSUER and JWT_AUDIENCE must be set when JWT_PUBLIC_KEY is set")
	}
	if _, err := time.ParseDuration(cfg.DedupeTTL); cfg.DedupeTTL != "" && err != nil {
		return nil, errors.New("config: DEDUPE_TTL must be a duration (e.g. 24h)")
	}

	return &cfg, nil
}

// TokenTTL parses JWTTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTTTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// DedupeWindow parses DedupeTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) DedupeWindow() time.Duration {
	d, err := time.ParseDuration(c.DedupeTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// AuthEnabled reports whether reporters must present a bearer token.
func (c *Config) AuthEnabled() bool {
	return c != nil && c.JWTPublicKey != ""
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if publishing is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
