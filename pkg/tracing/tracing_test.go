package tracing

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logrouter/internal/config"
)

func TestSampler(t *testing.T) {
	tests := []struct {
		cfg  config.SamplerConfig
		want string
	}{
		{config.SamplerConfig{Type: "always_off"}, "AlwaysOffSampler"},
		{config.SamplerConfig{Type: "always_on"}, "AlwaysOnSampler"},
		{config.SamplerConfig{}, "AlwaysOnSampler"},
		{config.SamplerConfig{Type: "ratio", Param: 0.1}, "ParentBased{root:TraceIDRatioBased{0.1}"},
		{config.SamplerConfig{Type: "traceidratio", Param: 0.5}, "TraceIDRatioBased{0.5}"},
	}

	for _, tt := range tests {
		t.Run(tt.cfg.Type, func(t *testing.T) {
			assert.Contains(t, Sampler(tt.cfg).Description(), tt.want)
		})
	}
}

func TestInitDisabledRecordsNothing(t *testing.T) {
	tp, err := Init(context.Background(), config.TracingConfig{Enabled: false}, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	defer span.End()
	assert.False(t, span.IsRecording())
}

func TestResolveServiceName(t *testing.T) {
	assert.Equal(t, "custom", resolveServiceName(config.TracingConfig{ServiceName: "custom"}, "ingest-service"))
	assert.Equal(t, "ingest-service", resolveServiceName(config.TracingConfig{}, "ingest-service"))
	assert.Equal(t, "ingest-service", resolveServiceName(config.TracingConfig{}, ""))
}

func TestTraced(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/api/v1/streams/match", true},
		{"/api/v1/codecs", true},
		{"/health", false},
		{"/metrics", false},
		{"/swagger/index.html", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Traced(httptest.NewRequest("GET", tt.path, nil)))
		})
	}
}
