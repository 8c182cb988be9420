package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func check(name string, err error) Checker {
	return CheckerFunc{CheckerName: name, Fn: func(ctx context.Context) error { return err }}
}

func TestCheckerRegistry(t *testing.T) {
	tests := []struct {
		name     string
		required error
		optional error
		want     Status
	}{
		{"all healthy", nil, nil, StatusHealthy},
		{"optional failing", nil, errors.New("down"), StatusDegraded},
		{"required failing", errors.New("down"), nil, StatusUnhealthy},
		{"both failing", errors.New("down"), errors.New("down"), StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			r.Register(check("postgresql", tt.required))
			r.RegisterOptional(check("redis", tt.optional))

			h := r.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, 2)
			if tt.optional != nil {
				assert.Equal(t, StatusDegraded, h.Checks["redis"].Status)
				assert.Equal(t, "redis check failed: down", h.Checks["redis"].Message)
			}
		})
	}
}

func TestKafkaCheckerWithoutBrokers(t *testing.T) {
	assert.Error(t, NewKafkaChecker(nil).Check(context.Background()))
}

func TestCheckRespectsTimeout(t *testing.T) {
	r := NewCheckerRegistry().WithTimeout(20 * time.Millisecond)
	r.Register(CheckerFunc{CheckerName: "slow", Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	h := r.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.Contains(t, h.Checks["slow"].Message, "deadline exceeded")
}

func TestOverall(t *testing.T) {
	assert.Equal(t, StatusHealthy, Overall(nil))
	assert.Equal(t, StatusDegraded, Overall(map[string]CheckResult{
		"a": {Status: StatusHealthy},
		"b": {Status: StatusDegraded},
	}))
	assert.Equal(t, StatusUnhealthy, Overall(map[string]CheckResult{
		"a": {Status: StatusDegraded},
		"b": {Status: StatusUnhealthy},
	}))
}
