package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"logrouter/internal/constants"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

var defaults = map[string]interface{}{
	"broker.type":                            "kafka",
	"broker.kafka.raw_topic":                 constants.DefaultRawTopic,
	"broker.kafka.output_topic":              constants.DefaultOutputTopic,
	"broker.kafka.dlq_topic":                 constants.DefaultDLQTopic,
	"broker.kafka.config_update_topic":       constants.DefaultConfigUpdateTopic,
	"broker.kafka.retry.max_attempts":        3,
	"broker.kafka.retry.initial_interval":    "100ms",
	"broker.kafka.retry.max_interval":        "5s",
	"broker.kafka.retry.multiplier":          2.0,
	"logging.level":                          "info",
	"logging.format":                         "json",
	"pipeline.partitions":                    constants.DefaultPartitions,
	"pipeline.ring_size":                     constants.DefaultRingSize,
	"decoding.input_cache_ttl":               constants.DefaultInputCacheTTL,
	"decoding.input_cache_sweep_interval":    constants.DefaultInputCacheSweepInterval,
	"inputs.redis_ttl_seconds":               constants.DefaultInputRedisTTLSeconds,
	"inputs.redis_key_prefix":                constants.CacheKeyPrefixInput,
	"streams.reload.interval_seconds":        constants.DefaultStreamReloadIntervalSeconds,
	"streams.reload.jitter_max_milliseconds": constants.DefaultStreamReloadJitterMs,
	"streams.fallback_evaluator":             true,
	"database.mongodb.streams_collection":    constants.DefaultStreamsCollection,
}

// envKeys are bound explicitly so they override the file even when the key
// is absent from it. The variable name is the key upper-cased with dots
// replaced by underscores.
var envKeys = []string{
	"broker.kafka.brokers",
	"broker.kafka.group_id",
	"broker.kafka.raw_topic",
	"broker.kafka.output_topic",
	"broker.kafka.config_update_topic",
	"broker.kafka.dlq_topic",

	"database.postgres.host",
	"database.postgres.port",
	"database.postgres.user",
	"database.postgres.password",
	"database.postgres.dbname",
	"database.postgres.sslmode",
	"database.redis.host",
	"database.redis.port",
	"database.redis.password",
	"database.redis.db",
	"database.mongodb.uri",
	"database.mongodb.database",

	"server.port",
	"server.read_timeout_seconds",
	"server.write_timeout_seconds",

	"pipeline.partitions",
	"pipeline.ring_size",

	"logging.level",
	"logging.format",

	"tracing.enabled",
	"tracing.service_name",
	"tracing.otlp.endpoint",
	"tracing.otlp.insecure",
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return strings.ToUpper(envKeyReplacer.Replace(key))
}

func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(configFile)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range envKeys {
		if err := v.BindEnv(key, EnvName(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if raw, ok := os.LookupEnv(EnvName("broker.kafka.brokers")); ok {
		if brokers := splitList(raw); len(brokers) > 0 {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
