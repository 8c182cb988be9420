package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"logrouter/internal/config"
	"logrouter/internal/logger"
	"logrouter/internal/streams"
	"logrouter/pkg/models"
)

type streamLoaderFunc func(ctx context.Context) ([]streams.Stream, error)

func (f streamLoaderFunc) LoadAllEnabled(ctx context.Context) ([]streams.Stream, error) {
	return f(ctx)
}

func TestNewStreamRouterLoadsBeforeReturning(t *testing.T) {
	loader := streamLoaderFunc(func(context.Context) ([]streams.Stream, error) {
		return []streams.Stream{{
			ID:    "web",
			Title: "web hosts",
			Rules: []streams.Rule{{Field: "source", Value: "web-1", Type: streams.RuleExact}},
		}}, nil
	})

	router := newStreamRouter(context.Background(), loader, config.StreamsConfig{}, logger.NopLogger())

	msg := models.NewMessage("hello", "web-1", time.Now())
	assert.Equal(t, []string{"web"}, router.Route(context.Background(), msg))
}

func TestNewStreamRouterWarnsOnLoadFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	loader := streamLoaderFunc(func(context.Context) ([]streams.Stream, error) {
		return nil, errors.New("mongo unavailable")
	})

	router := newStreamRouter(context.Background(), loader, config.StreamsConfig{}, logger.NewFromCore(core))
	require.NotNil(t, router)

	msg := models.NewMessage("hello", "web-1", time.Now())
	assert.Empty(t, router.Route(context.Background(), msg))
	require.Equal(t, 1, logs.FilterMessage("Failed to load initial streams").Len())
}
