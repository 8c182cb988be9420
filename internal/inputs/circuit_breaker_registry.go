package inputs

import (
	"context"

	"logrouter/internal/config"
	"logrouter/pkg/circuitbreaker"
	pkgerrors "logrouter/pkg/errors"
	"logrouter/pkg/models"
)

const breakerName = "inputs-registry"

// CircuitBreakerRegistry stops hammering a failing input store. A missing
// input is an answer, not a failure, and does not count against the breaker.
type CircuitBreakerRegistry struct {
	next Registry
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerRegistry(next Registry, cfg config.CircuitBreakerConfig) *CircuitBreakerRegistry {
	if !cfg.Enabled {
		return &CircuitBreakerRegistry{next: next}
	}

	cbConfig := circuitbreaker.FromConfig(breakerName, cfg)
	cbConfig.IsSuccessful = func(err error) bool {
		return err == nil || pkgerrors.IsNotFound(err)
	}
	return &CircuitBreakerRegistry{next: next, cb: circuitbreaker.NewWrapper(cbConfig)}
}

func (r *CircuitBreakerRegistry) Resolve(ctx context.Context, inputID string) (*models.InputMetadata, error) {
	if r.cb == nil {
		return r.next.Resolve(ctx, inputID)
	}
	return circuitbreaker.Call(ctx, r.cb, func() (*models.InputMetadata, error) {
		return r.next.Resolve(ctx, inputID)
	})
}

func (r *CircuitBreakerRegistry) State() string {
	if r.cb == nil {
		return "disabled"
	}
	return r.cb.State().String()
}

func (r *CircuitBreakerRegistry) IsOpen() bool {
	return r.cb != nil && r.cb.IsOpen()
}
