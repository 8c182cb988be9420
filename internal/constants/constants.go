package constants

import "time"

const (
	ServiceName = "ingest-service"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	PostgresMaxOpenConns    = 20
	PostgresMaxIdleConns    = 5
	PostgresConnMaxLifetime = 30 * time.Minute
	DatabaseConnectAttempts = 5
)

const (
	DefaultRawTopic          = "raw_messages"
	DefaultOutputTopic       = "routed_messages"
	DefaultDLQTopic          = "raw_messages_dlq"
	DefaultConfigUpdateTopic = "config_updates"
)

const (
	DefaultPartitions = 4
	DefaultRingSize   = 1024
)

const (
	DefaultInputCacheTTL           = time.Second
	DefaultInputCacheSweepInterval = 30 * time.Second
	DefaultInputRedisTTLSeconds    = 60
	CacheKeyPrefixInput            = "input:"
)

const (
	DefaultMongoDBName                 = "logrouter"
	DefaultStreamsCollection           = "streams"
	DefaultStreamReloadIntervalSeconds = 30
	DefaultStreamReloadJitterMs        = 1000
)

const (
	ShutdownTimeout  = 5 * time.Second
	MigrationTimeout = 2 * time.Minute
	InitTimeout      = 30 * time.Second
)

const (
	DefaultTruncateLen = 100
)

// Timing names recorded onto decoded messages.
const (
	TimingParse  = "parse"
	TimingDecode = "decode"
)

const (
	MatchPathIndex    = "index"
	MatchPathFallback = "fallback"
)

const (
	CacheResultHit   = "hit"
	CacheResultMiss  = "miss"
	CacheResultError = "error"
)

const (
	DLQReasonProvenanceConflict = "provenance_conflict"
	DLQReasonPanic              = "panic"
	DLQReasonInvalid            = "invalid_raw_message"
	DLQReasonMaxRetries         = "max_retries_exceeded"
)

const (
	HeaderPartitionKey = "partition-key"
	HeaderCodec        = "codec"
)
