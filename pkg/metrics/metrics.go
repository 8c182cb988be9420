package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	DecodingFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decoding_failures_total",
			Help: "Messages a codec failed to decode or decoded to nothing, per codec and input (count)",
		},
		[]string{"codec", "input"},
	)

	DecodingIncompleteTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decoding_incomplete_total",
			Help: "Decoded messages dropped for missing mandatory fields, per codec and input (count)",
		},
		[]string{"codec", "input"},
	)

	DecodingProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decoding_processed_messages_total",
			Help: "Messages successfully decoded and enriched, per codec and input (count)",
		},
		[]string{"codec", "input"},
	)

	DecodingUnknownCodecTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decoding_unknown_codec_total",
			Help: "Raw messages naming a codec with no registered factory (count)",
		},
		[]string{"codec"},
	)

	DecodingProvenanceConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "decoding_provenance_conflicts_total",
			Help: "Raw messages carrying more than one source node of the same type (count)",
		},
	)

	DecodeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "decoding_decode_duration_ms",
			Help:    "Overall time spent in the decoding stage per message in milliseconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		},
	)

	ParseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "decoding_parse_duration_ms",
			Help:    "Time spent inside codec decode per message in milliseconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		},
	)

	InputCacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "input_cache_requests_total",
			Help: "Input metadata cache lookups by result (count)",
		},
		[]string{"result"},
	)

	InputCacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "input_cache_size",
			Help: "Number of input metadata snapshots currently cached (count)",
		},
	)

	InputLookupErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "input_lookup_errors_total",
			Help: "Failed input metadata resolutions by reason (count)",
		},
		[]string{"reason"},
	)

	StreamsCheckedStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "streams_index_checked_streams",
			Help: "Streams covered by the current stream rule index (count)",
		},
	)

	StreamsSkippedStreams = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "streams_index_skipped_streams",
			Help: "Enabled streams the current index does not cover, by reason (count)",
		},
		[]string{"reason"},
	)

	StreamsFallbackStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "streams_fallback_streams",
			Help: "Streams evaluated by the complete rule evaluator (count)",
		},
	)

	StreamsReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streams_reloads_total",
			Help: "Stream snapshot rebuilds by status (count)",
		},
		[]string{"status"},
	)

	StreamsMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streams_matches_total",
			Help: "Stream matches by evaluation path (count)",
		},
		[]string{"path"},
	)

	RoutingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "routing_duration_ms",
			Help:    "Time spent matching one message against all streams in milliseconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	PipelineMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_messages_total",
			Help: "Raw messages leaving the pipeline by outcome (count)",
		},
		[]string{"status"},
	)

	PipelinePanicsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_panics_total",
			Help: "Panics recovered by pipeline partition workers (count)",
		},
	)

	PipelineQueueSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipeline_queue_size",
			Help: "Raw messages waiting in a partition ring (count)",
		},
		[]string{"partition"},
	)

	PipelineQueueWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_queue_wait_duration_ms",
			Help:    "Time a submit blocked on a full partition ring in milliseconds",
			Buckets: []float64{0.1, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag reported by the reader (count)",
		},
		[]string{"service", "topic", "partition"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"database", "operation"},
	)
)

func RegisterDecodingMetrics() {
	prometheus.MustRegister(DecodingFailuresTotal)
	prometheus.MustRegister(DecodingIncompleteTotal)
	prometheus.MustRegister(DecodingProcessedTotal)
	prometheus.MustRegister(DecodingUnknownCodecTotal)
	prometheus.MustRegister(DecodingProvenanceConflictsTotal)
	prometheus.MustRegister(DecodeDuration)
	prometheus.MustRegister(ParseDuration)
	prometheus.MustRegister(InputCacheRequestsTotal)
	prometheus.MustRegister(InputCacheSize)
	prometheus.MustRegister(InputLookupErrorsTotal)
}

func RegisterRoutingMetrics() {
	prometheus.MustRegister(StreamsCheckedStreams)
	prometheus.MustRegister(StreamsSkippedStreams)
	prometheus.MustRegister(StreamsFallbackStreams)
	prometheus.MustRegister(StreamsReloadsTotal)
	prometheus.MustRegister(StreamsMatchesTotal)
	prometheus.MustRegister(RoutingDuration)
}

func RegisterPipelineMetrics() {
	prometheus.MustRegister(PipelineMessagesTotal)
	prometheus.MustRegister(PipelinePanicsTotal)
	prometheus.MustRegister(PipelineQueueSize)
	prometheus.MustRegister(PipelineQueueWaitDuration)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaConsumerLag)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterAPIMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func millis(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / float64(time.Millisecond)
}

func ObserveDecodeDuration(d time.Duration) {
	DecodeDuration.Observe(millis(d))
}

func ObserveParseDuration(d time.Duration) {
	ParseDuration.Observe(millis(d))
}

func ObserveRoutingDuration(d time.Duration) {
	RoutingDuration.Observe(millis(d))
}

func IncInputCache(result string) {
	InputCacheRequestsTotal.WithLabelValues(result).Inc()
}

func SetInputCacheSize(size int) {
	InputCacheSize.Set(float64(size))
}

func SetStreamIndexStats(checked int, skipped map[string]int, fallback int) {
	StreamsCheckedStreams.Set(float64(checked))
	StreamsSkippedStreams.Reset()
	for reason, count := range skipped {
		StreamsSkippedStreams.WithLabelValues(reason).Set(float64(count))
	}
	StreamsFallbackStreams.Set(float64(fallback))
}

func SetPipelineQueueSize(partition int, size int) {
	PipelineQueueSize.WithLabelValues(fmt.Sprintf("%d", partition)).Set(float64(size))
}

func ObservePipelineQueueWait(d time.Duration) {
	PipelineQueueWaitDuration.Observe(millis(d))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func SetKafkaConsumerLag(service, topic string, partition int, lag int64) {
	KafkaConsumerLag.WithLabelValues(service, topic, fmt.Sprintf("%d", partition)).Set(float64(lag))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(database, operation).Observe(float64(duration.Milliseconds()))
}
