package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

var sslModes = map[string]bool{
	"disable": true, "allow": true, "prefer": true,
	"require": true, "verify-ca": true, "verify-full": true,
}

// validator collects every problem instead of stopping at the first one.
type validator struct {
	errs []error
}

func (v *validator) fail(field, format string, args ...interface{}) {
	v.errs = append(v.errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) check(ok bool, field, format string, args ...interface{}) {
	if !ok {
		v.fail(field, format, args...)
	}
}

func (v *validator) required(field, value, what string) {
	v.check(value != "", field, "%s is required", what)
}

func (v *validator) port(field string, port int) {
	v.check(port >= 1 && port <= 65535, field, "port must be between 1 and 65535, got %d", port)
}

func (v *validator) nonNegative(field string, n int64) {
	v.check(n >= 0, field, "must be non-negative, got %d", n)
}

func (v *validator) positiveDuration(field string, d time.Duration) {
	v.check(d > 0, field, "must be positive, got %s", d)
}

func ValidateStatic(cfg *Config) error {
	v := &validator{}

	v.server(cfg.Server)
	v.broker(cfg.Broker)
	v.database(cfg.Database)
	v.pipeline(cfg.Pipeline)
	v.decoding(cfg.Decoding)
	v.nonNegative("inputs.redis_ttl_seconds", int64(cfg.Inputs.RedisTTLSeconds))
	v.nonNegative("streams.reload.interval_seconds", int64(cfg.Streams.Reload.IntervalSeconds))
	v.nonNegative("streams.reload.jitter_max_milliseconds", int64(cfg.Streams.Reload.JitterMaxMilliseconds))
	v.rateLimit(cfg.API.RateLimit)

	if len(v.errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(v.errs...))
	}
	return nil
}

func (v *validator) server(cfg ServerConfig) {
	v.port("server.port", cfg.Port)
	v.positiveDuration("server.read_timeout_seconds", cfg.ReadTimeoutSeconds)
	v.positiveDuration("server.write_timeout_seconds", cfg.WriteTimeoutSeconds)
}

func (v *validator) broker(cfg BrokerConfig) {
	if cfg.Type != "" && cfg.Type != "kafka" {
		v.fail("broker.type", "unknown broker type: %s (supported: kafka)", cfg.Type)
		return
	}

	k := cfg.Kafka
	v.check(len(k.Brokers) > 0, "broker.kafka.brokers", "at least one Kafka broker is required")
	for i, addr := range k.Brokers {
		v.check(addr != "", fmt.Sprintf("broker.kafka.brokers[%d]", i), "broker address cannot be empty")
	}
	v.required("broker.kafka.group_id", k.GroupID, "Kafka consumer group ID")
	v.required("broker.kafka.raw_topic", k.RawTopic, "raw journal topic")
	v.required("broker.kafka.output_topic", k.OutputTopic, "output topic")

	r := k.Retry
	v.nonNegative("broker.kafka.retry.max_attempts", int64(r.MaxAttempts))
	v.nonNegative("broker.kafka.retry.initial_interval", int64(r.InitialInterval))
	v.nonNegative("broker.kafka.retry.max_interval", int64(r.MaxInterval))
	if r.MaxInterval > 0 && r.InitialInterval > r.MaxInterval {
		v.fail("broker.kafka.retry.max_interval", "must be at least initial_interval (%s), got %s", r.InitialInterval, r.MaxInterval)
	}
	v.check(r.Multiplier > 0, "broker.kafka.retry.multiplier", "multiplier must be positive")
}

// database checks only the stores that are configured; which ones are
// required is decided when the service connects.
func (v *validator) database(cfg DatabaseConfig) {
	if pg := cfg.Postgres; pg.Host != "" || pg.Port > 0 {
		v.required("database.postgres.host", pg.Host, "PostgreSQL host")
		v.port("database.postgres.port", pg.Port)
		v.required("database.postgres.user", pg.User, "PostgreSQL user")
		v.required("database.postgres.dbname", pg.DBName, "PostgreSQL database name")
		if pg.SSLMode != "" && !sslModes[strings.ToLower(pg.SSLMode)] {
			v.fail("database.postgres.sslmode", "invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", pg.SSLMode)
		}
	}

	if rd := cfg.Redis; rd.Host != "" || rd.Port > 0 {
		v.required("database.redis.host", rd.Host, "Redis host")
		v.port("database.redis.port", rd.Port)
	}

	if uri := cfg.MongoDB.URI; uri != "" {
		v.check(strings.HasPrefix(uri, "mongodb://") || strings.HasPrefix(uri, "mongodb+srv://"),
			"database.mongodb.uri", "MongoDB URI must start with mongodb:// or mongodb+srv://")
		v.required("database.mongodb.database", cfg.MongoDB.Database, "MongoDB database name")
	}
}

func (v *validator) pipeline(cfg PipelineConfig) {
	v.check(cfg.Partitions >= 1, "pipeline.partitions", "at least one partition is required, got %d", cfg.Partitions)
	v.check(cfg.RingSize >= 1, "pipeline.ring_size", "ring size must be positive, got %d", cfg.RingSize)
}

func (v *validator) decoding(cfg DecodingConfig) {
	v.positiveDuration("decoding.input_cache_ttl", cfg.InputCacheTTL)
	v.nonNegative("decoding.input_cache_sweep_interval", int64(cfg.InputCacheSweepInterval))
}

func (v *validator) rateLimit(cfg RateLimitConfig) {
	if !cfg.Enabled {
		return
	}
	v.check(cfg.RPS > 0, "api.rate_limit.rps", "rps must be positive when rate limiting is enabled")
	v.check(cfg.Burst >= 1, "api.rate_limit.burst", "burst must be at least 1 when rate limiting is enabled")
}
