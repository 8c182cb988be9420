package output

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logrouter/internal/config"
	"logrouter/internal/constants"
	"logrouter/internal/decoding"
	"logrouter/internal/logger"
	"logrouter/pkg/metrics"
	"logrouter/pkg/models"
)

type published struct {
	topic   string
	key     string
	payload interface{}
}

type fakeProducer struct {
	mu       sync.Mutex
	failures int
	records  []published
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return stderrors.New("broker unavailable")
	}
	p.records = append(p.records, published{topic: topic, key: key, payload: payload})
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func testConfig() config.KafkaConfig {
	return config.KafkaConfig{
		RawTopic:    "raw",
		OutputTopic: "routed",
		DLQTopic:    "dlq",
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
			Multiplier:      1,
		},
	}
}

func TestPublishRoutedMessage(t *testing.T) {
	producer := &fakeProducer{}
	p := NewPublisher(producer, testConfig(), logger.NopLogger())

	msg := models.NewMessage("hello", "web-1", time.Now())
	msg.SourceInput = &models.InputMetadata{ID: "input-1"}

	require.NoError(t, p.Publish(context.Background(), msg, []string{"s1", "s2"}))
	require.Len(t, producer.records, 1)

	rec := producer.records[0]
	assert.Equal(t, "routed", rec.topic)
	assert.Equal(t, "input-1", rec.key)
	routed, ok := rec.payload.(models.RoutedMessage)
	require.True(t, ok)
	assert.Equal(t, []string{"s1", "s2"}, routed.Streams)
	assert.Equal(t, msg.ID(), routed.ID)
}

func TestPublishWithoutStreamsKeyedByID(t *testing.T) {
	producer := &fakeProducer{}
	p := NewPublisher(producer, testConfig(), logger.NopLogger())
	msg := models.NewMessage("hello", "web-1", time.Now())

	require.NoError(t, p.Publish(context.Background(), msg, nil))
	routed := producer.records[0].payload.(models.RoutedMessage)
	assert.Equal(t, msg.ID(), producer.records[0].key)
	assert.Equal(t, []string{}, routed.Streams)
}

func TestPublishRetries(t *testing.T) {
	producer := &fakeProducer{failures: 2}
	p := NewPublisher(producer, testConfig(), logger.NopLogger())

	require.NoError(t, p.Publish(context.Background(), models.NewMessage("m", "s", time.Now()), nil))
	assert.Len(t, producer.records, 1)

	producer.failures = 5
	assert.Error(t, p.Publish(context.Background(), models.NewMessage("m", "s", time.Now()), nil))
}

func TestDeadLetterProvenanceConflict(t *testing.T) {
	producer := &fakeProducer{}
	p := NewPublisher(producer, testConfig(), logger.NopLogger())
	before := testutil.ToFloat64(metrics.DLQMessagesTotal.WithLabelValues(constants.ServiceName, "raw", constants.DLQReasonProvenanceConflict))

	raw := models.NewRawMessageBuilder("raw", []byte("hello")).WithID("r1").Build()
	raw.PartitionKey = "input-1"
	cause := &decoding.ProvenanceConflictError{NodeType: models.SourceNodeServer, InputID: "input-2", Err: models.ErrProvenanceConflict}

	require.NoError(t, p.DeadLetter(context.Background(), raw, cause))
	require.Len(t, producer.records, 1)

	rec := producer.records[0]
	assert.Equal(t, "dlq", rec.topic)
	assert.Equal(t, "input-1", rec.key)
	letter := rec.payload.(models.DeadLetter)
	assert.Equal(t, constants.DLQReasonProvenanceConflict, letter.Reason)
	assert.Equal(t, "r1", letter.Raw.ID)
	assert.Equal(t, []byte("hello"), letter.Raw.Payload)
	assert.Equal(t, "raw", letter.SourceTopic)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DLQMessagesTotal.WithLabelValues(constants.ServiceName, "raw", constants.DLQReasonProvenanceConflict)))
}

func TestDeadLetterWithoutTopic(t *testing.T) {
	producer := &fakeProducer{}
	cfg := testConfig()
	cfg.DLQTopic = ""
	p := NewPublisher(producer, cfg, logger.NopLogger())

	raw := models.NewRawMessageBuilder("raw", []byte("x")).Build()
	require.NoError(t, p.DeadLetter(context.Background(), raw, stderrors.New("boom")))
	assert.Empty(t, producer.records)
}
