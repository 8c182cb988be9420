package broker

import (
	"fmt"

	"logrouter/internal/config"
	"logrouter/internal/logger"
)

const TypeKafka = "kafka"

// ConsumerOption adjusts a consumer's settings before it is built.
type ConsumerOption func(*consumerSettings)

type consumerSettings struct {
	kafka       config.KafkaConfig
	serviceName string
}

// WithGroupSuffix moves the consumer into its own group, derived from the
// configured one.
func WithGroupSuffix(suffix string) ConsumerOption {
	return func(s *consumerSettings) {
		s.kafka.GroupID = fmt.Sprintf("%s-%s", s.kafka.GroupID, suffix)
	}
}

// WithoutDLQ makes handler failures log and commit instead of dead-lettering.
func WithoutDLQ() ConsumerOption {
	return func(s *consumerSettings) {
		s.kafka.DLQTopic = ""
	}
}

func WithServiceName(name string) ConsumerOption {
	return func(s *consumerSettings) {
		s.serviceName = name
	}
}

func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	if cfg.Type != TypeKafka {
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
	return NewKafkaProducer(cfg.Kafka, log), nil
}

func NewConsumer(cfg config.BrokerConfig, log logger.Logger, opts ...ConsumerOption) (Consumer, error) {
	if cfg.Type != TypeKafka {
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}

	settings := consumerSettings{kafka: cfg.Kafka}
	for _, opt := range opts {
		opt(&settings)
	}

	consumer := NewKafkaConsumer(settings.kafka, log)
	if settings.serviceName != "" {
		consumer.SetServiceName(settings.serviceName)
	}
	return consumer, nil
}
