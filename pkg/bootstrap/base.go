package bootstrap

import (
	"context"
	"fmt"

	"logrouter/internal/broker"
	"logrouter/internal/config"
	"logrouter/internal/logger"
)

type Base struct {
	Config         *config.Config
	Logger         logger.Logger
	Producer       broker.Producer
	Consumer       broker.Consumer
	ConfigConsumer broker.Consumer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

func (b *Base) InitBroker(serviceName string) error {
	producer, err := broker.NewProducer(b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}

	consumer, err := broker.NewConsumer(b.Config.Broker, b.Logger, broker.WithServiceName(serviceName))
	if err != nil {
		producer.Close()
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	b.Producer = producer
	b.Consumer = consumer
	return nil
}

// InitConfigConsumer creates the config update consumer. It joins a group of
// its own so every instance sees every event, and never dead-letters.
func (b *Base) InitConfigConsumer(serviceName, instanceID string) error {
	consumer, err := broker.NewConsumer(b.Config.Broker, b.Logger,
		broker.WithGroupSuffix("config-"+instanceID),
		broker.WithoutDLQ(),
		broker.WithServiceName(serviceName),
	)
	if err != nil {
		return fmt.Errorf("failed to create config consumer: %w", err)
	}

	b.ConfigConsumer = consumer
	return nil
}

// ShutdownBroker closes the consumers. Close waits for in-flight handlers.
func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.ConfigConsumer != nil {
		if err := b.ConfigConsumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("config consumer close error: %w", err))
		}
	}

	if b.Consumer != nil {
		if err := b.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	return errs
}

// ShutdownProducer closes the producer. Call it after every consumer and
// queue feeding it has stopped.
func (b *Base) ShutdownProducer() []error {
	if b.Producer == nil {
		return nil
	}
	if err := b.Producer.Close(); err != nil {
		return []error{fmt.Errorf("producer close error: %w", err)}
	}
	return nil
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	errs = append(errs, b.ShutdownBroker()...)

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	errs = append(errs, b.ShutdownProducer()...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
