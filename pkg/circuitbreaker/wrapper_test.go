package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logrouter/internal/config"
)

var errBackend = errors.New("backend down")

func newTestWrapper(name string, isSuccessful func(error) bool) *Wrapper {
	return NewWrapper(Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		ReadyToTrip:  FailureRatio(0.5, 2),
		IsSuccessful: isSuccessful,
	})
}

func TestWrapperTripsOnFailureRatio(t *testing.T) {
	w := newTestWrapper("test-trip", nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := Call(ctx, w, func() (string, error) { return "", errBackend })
		require.ErrorIs(t, err, errBackend)
	}

	assert.True(t, w.IsOpen())
	_, err := Call(ctx, w, func() (string, error) { return "ok", nil })
	assert.ErrorIs(t, err, ErrOpen)
}

func TestWrapperIgnoresAcceptedErrors(t *testing.T) {
	errNotFound := errors.New("not found")
	w := newTestWrapper("test-accepted", func(err error) bool {
		return err == nil || errors.Is(err, errNotFound)
	})

	for i := 0; i < 5; i++ {
		_, err := Call(context.Background(), w, func() (int, error) { return 0, errNotFound })
		assert.ErrorIs(t, err, errNotFound)
	}
	assert.True(t, w.IsClosed())
}

func TestCallReturnsTypedResult(t *testing.T) {
	w := NewWrapper(DefaultConfig("test-typed"))
	v, err := Call(context.Background(), w, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestWrapperHonoursCancelledContext(t *testing.T) {
	w := NewWrapper(DefaultConfig("test-cancel"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := w.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestFailureRatio(t *testing.T) {
	trip := FailureRatio(0.6, 5)
	assert.False(t, trip(gobreaker.Counts{Requests: 4, TotalFailures: 4}))
	assert.False(t, trip(gobreaker.Counts{Requests: 10, TotalFailures: 5}))
	assert.True(t, trip(gobreaker.Counts{Requests: 10, TotalFailures: 6}))
}

func TestCallKeepsResultOnAcceptedError(t *testing.T) {
	errPartial := errors.New("partial")
	w := newTestWrapper("test-partial", func(err error) bool {
		return err == nil || errors.Is(err, errPartial)
	})

	v, err := Call(context.Background(), w, func() ([]int, error) { return []int{1}, errPartial })
	assert.ErrorIs(t, err, errPartial)
	assert.Equal(t, []int{1}, v)
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig("inputs", config.CircuitBreakerConfig{MaxRequests: 7, FailureRatio: 0.9})

	assert.Equal(t, "inputs", cfg.Name)
	assert.Equal(t, uint32(7), cfg.MaxRequests)
	assert.Equal(t, time.Minute, cfg.Timeout)
	// Ratio without min_requests keeps the default trip rule.
	assert.True(t, cfg.ReadyToTrip(gobreaker.Counts{Requests: 3, TotalFailures: 2}))
}
