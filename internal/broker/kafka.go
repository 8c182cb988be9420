package broker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"logrouter/internal/config"
	"logrouter/internal/constants"
	"logrouter/internal/logger"
	"logrouter/pkg/errors"
	"logrouter/pkg/logging"
	"logrouter/pkg/metrics"
	"logrouter/pkg/models"
	"logrouter/pkg/retry"
	"logrouter/pkg/tracing"
)

const fetchErrorBackoff = time.Second

type KafkaProducer struct {
	writer      *kafka.Writer
	logger      logger.Logger
	serviceName string
}

// NewKafkaProducer hashes keys onto partitions, so records sharing a key keep
// their relative order.
func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           constants.KafkaBatchTimeout,
		WriteTimeout:           constants.KafkaWriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  false,
	}
	return &KafkaProducer{writer: w, logger: log, serviceName: constants.ServiceName}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, span := tracing.StartProducerSpan(ctx, "kafka.produce", topic)
	defer span.End()

	headers := tracing.InjectTraceContext(ctx, nil)

	start := time.Now()
	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   topic,
			Key:     []byte(key),
			Value:   body,
			Headers: headers,
			Time:    time.Now(),
		},
	)
	metrics.ObserveKafkaWriteDuration(p.serviceName, topic, time.Since(start))

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncKafkaMessagesWritten(p.serviceName, topic)
	metrics.ObserveKafkaMessageSize(p.serviceName, topic, "out", len(body))
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type KafkaConsumer struct {
	cfg         config.KafkaConfig
	wg          sync.WaitGroup
	mu          sync.Mutex
	readers     []*kafka.Reader
	logger      logger.Logger
	dlqProducer Producer
	serviceName string
	policy      retry.Policy
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	consumer := &KafkaConsumer{
		cfg:         cfg,
		logger:      log,
		serviceName: "unknown",
		policy:      retry.PolicyFromConfig(cfg.Retry),
	}

	if cfg.DLQTopic != "" {
		consumer.dlqProducer = NewKafkaProducer(cfg, log)
	}

	return consumer
}

func (c *KafkaConsumer) SetServiceName(name string) {
	c.serviceName = name
}

// Consume reads topic until ctx is done. Each record is committed once
// handler returns nil, or once it has been dead-lettered after failing.
func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
		"service_name", c.serviceName,
	)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})

	c.mu.Lock()
	c.readers = append(c.readers, reader)
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		consumeCtx := logging.WithServiceName(ctx, c.serviceName)
		c.logger.InfowCtx(consumeCtx, "Started consuming",
			"topic", topic,
		)

		for {
			m, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.InfowCtx(consumeCtx, "Stopped consuming",
						"topic", topic,
						"reason", "context canceled",
					)
					return
				}
				c.logger.ErrorwCtx(consumeCtx, "Error fetching kafka message",
					"error", err,
					"topic", topic,
				)
				select {
				case <-ctx.Done():
				case <-time.After(fetchErrorBackoff):
				}
				continue
			}

			c.handle(consumeCtx, reader, m, handler)
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaConsumer) handle(ctx context.Context, reader *kafka.Reader, m kafka.Message, handler HandlerFunc) {
	metrics.IncKafkaMessagesRead(c.serviceName, m.Topic)
	metrics.ObserveKafkaMessageSize(c.serviceName, m.Topic, "in", len(m.Value))
	if m.HighWaterMark > 0 {
		metrics.SetKafkaConsumerLag(c.serviceName, m.Topic, m.Partition, m.HighWaterMark-m.Offset-1)
	}

	msgCtx, span := tracing.StartSpanFromKafkaMessage(ctx, "kafka.consume", m)
	defer span.End()
	msgCtx = logging.WithPartition(msgCtx, m.Partition)

	msg := fromKafka(m)
	if err := c.processMessageWithRetry(msgCtx, msg, handler); err != nil {
		span.RecordError(err)
		if ctx.Err() != nil {
			// Left uncommitted so the group redelivers it.
			c.logger.WarnwCtx(msgCtx, "Consumer stopped before message was handled",
				"topic", m.Topic,
				"offset", m.Offset,
			)
			return
		}
		c.logger.ErrorwCtx(msgCtx, "Failed to process message",
			"error", err,
			"topic", m.Topic,
			"offset", m.Offset,
		)
		if c.dlqProducer != nil && c.cfg.DLQTopic != "" {
			if dlqErr := c.sendToDLQ(msgCtx, msg, err); dlqErr != nil {
				c.logger.ErrorwCtx(msgCtx, "Failed to send message to DLQ",
					"error", dlqErr,
					"topic", m.Topic,
				)
			}
		} else {
			c.logger.WarnwCtx(msgCtx, "No DLQ configured, committing message to avoid blocking",
				"topic", m.Topic,
			)
		}
	}

	if err := reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.logger.ErrorwCtx(msgCtx, "Failed to commit message",
			"error", err,
			"topic", m.Topic,
		)
	}
}

func fromKafka(m kafka.Message) Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Headers:   headers,
		Time:      m.Time,
	}
}

func (c *KafkaConsumer) Close() error {
	var err error
	c.mu.Lock()
	for _, reader := range c.readers {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	c.readers = nil
	c.mu.Unlock()

	if c.dlqProducer != nil {
		if closeErr := c.dlqProducer.Close(); closeErr != nil {
			if err == nil {
				err = closeErr
			}
		}
	}
	c.wg.Wait()
	return err
}

func (c *KafkaConsumer) processMessageWithRetry(ctx context.Context, msg Message, handler HandlerFunc) error {
	return retry.RetryWithCallback(ctx, c.policy, func() error {
		err := errors.Guard(func() error { return handler(ctx, msg) })
		if errors.IsPanic(err) {
			c.logger.ErrorwCtx(ctx, "Panic recovered during message processing",
				"error", err,
				"topic", msg.Topic,
			)
		}
		return err
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(c.serviceName, msg.Topic).Inc()
		c.logger.WarnwCtx(ctx, "Retrying message processing",
			"attempt", attempt,
			"max_attempts", c.policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", msg.Topic,
		)
	})
}

func (c *KafkaConsumer) sendToDLQ(ctx context.Context, msg Message, originalErr error) error {
	letter := DeadLetterFor(msg, originalErr)

	err := c.dlqProducer.Publish(ctx, c.cfg.DLQTopic, string(msg.Key), letter)
	if err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	metrics.DLQMessagesTotal.WithLabelValues(c.serviceName, msg.Topic, letter.Reason).Inc()
	c.logger.InfowCtx(ctx, "Message sent to DLQ",
		"source_topic", msg.Topic,
		"dlq_topic", c.cfg.DLQTopic,
		"reason", letter.Reason,
	)

	return nil
}

// DeadLetterReason classifies a processing failure for the DLQ.
func DeadLetterReason(err error) (reason, code string) {
	switch {
	case stderrors.Is(err, errors.ErrProvenanceConflict):
		return constants.DLQReasonProvenanceConflict, errors.ErrProvenanceConflict.Code
	case stderrors.Is(err, errors.ErrValidation):
		return constants.DLQReasonInvalid, errors.ErrValidation.Code
	case errors.IsPanic(err):
		return constants.DLQReasonPanic, errors.ErrInternal.Code
	default:
		return constants.DLQReasonMaxRetries, errors.Code(err)
	}
}

// DeadLetterFor wraps a record that could not be processed. Records that do
// not parse keep their bytes as the raw payload.
func DeadLetterFor(msg Message, err error) models.DeadLetter {
	raw, decodeErr := DecodeRawRecord(msg)
	if decodeErr != nil {
		raw = &models.RawMessage{Payload: msg.Value, JournalOffset: msg.Offset}
	}
	return NewDeadLetter(raw, msg.Topic, err)
}

func NewDeadLetter(raw *models.RawMessage, sourceTopic string, err error) models.DeadLetter {
	reason, code := DeadLetterReason(err)
	return models.DeadLetter{
		Raw:         *raw,
		Reason:      reason,
		ErrorCode:   code,
		Error:       err.Error(),
		SourceTopic: sourceTopic,
		FailedAt:    time.Now().UTC(),
	}
}
