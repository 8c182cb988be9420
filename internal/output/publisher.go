package output

import (
	"context"
	"time"

	"logrouter/internal/broker"
	"logrouter/internal/config"
	"logrouter/internal/constants"
	"logrouter/internal/logger"
	"logrouter/pkg/metrics"
	"logrouter/pkg/models"
	"logrouter/pkg/retry"
)

// Publisher writes routed messages to the output topic and fatal raw
// messages to the dead letter topic.
type Publisher struct {
	producer    broker.Producer
	outputTopic string
	dlqTopic    string
	rawTopic    string
	policy      retry.Policy
	logger      logger.Logger
}

func NewPublisher(producer broker.Producer, cfg config.KafkaConfig, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.NopLogger()
	}
	outputTopic := cfg.OutputTopic
	if outputTopic == "" {
		outputTopic = constants.DefaultOutputTopic
	}
	return &Publisher{
		producer:    producer,
		outputTopic: outputTopic,
		dlqTopic:    cfg.DLQTopic,
		rawTopic:    cfg.RawTopic,
		policy:      retry.PolicyFromConfig(cfg.Retry),
		logger:      log,
	}
}

// Publish writes one RoutedMessage per decoded message, carrying every
// matched stream id. Messages matching no stream are still written with an
// empty list. Records are keyed by source input so one input's messages stay
// ordered downstream.
func (p *Publisher) Publish(ctx context.Context, msg *models.Message, streams []string) error {
	routed := models.NewRoutedMessage(msg, streams)
	key := routed.SourceInputID
	if key == "" {
		key = routed.ID
	}

	return p.publishWithRetry(ctx, p.outputTopic, key, routed)
}

// DeadLetter publishes raw with the classified cause. Without a DLQ topic
// the message is only logged.
func (p *Publisher) DeadLetter(ctx context.Context, raw *models.RawMessage, cause error) error {
	letter := broker.NewDeadLetter(raw, p.rawTopic, cause)

	p.logger.ErrorwCtx(ctx, "Dead-lettering raw message",
		"raw_message_id", raw.ID,
		"journal_offset", raw.JournalOffset,
		"reason", letter.Reason,
		"error", cause,
	)

	if p.dlqTopic == "" {
		p.logger.WarnwCtx(ctx, "No DLQ configured, dropping raw message", "raw_message_id", raw.ID)
		return nil
	}

	if err := p.publishWithRetry(ctx, p.dlqTopic, raw.PartitionKey, letter); err != nil {
		return err
	}
	metrics.DLQMessagesTotal.WithLabelValues(constants.ServiceName, p.rawTopic, letter.Reason).Inc()
	return nil
}

func (p *Publisher) publishWithRetry(ctx context.Context, topic, key string, payload interface{}) error {
	return retry.RetryWithCallback(ctx, p.policy, func() error {
		return p.producer.Publish(ctx, topic, key, payload)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(constants.ServiceName, topic).Inc()
		p.logger.WarnwCtx(ctx, "Retrying publish",
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	})
}
