package inputs

import (
	"time"

	"logrouter/internal/config"
)

func circuitBreakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:      true,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func configDisabled() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{}
}
