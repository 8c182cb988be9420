package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetLogFields(ctx))

	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithMessageID(ctx, "msg-1")
	ctx = WithInputID(ctx, "input-1")
	ctx = WithCodec(ctx, "json")
	ctx = WithPartition(ctx, 3)

	assert.Equal(t, []interface{}{
		"trace_id", "trace-1",
		"request_id", "req-1",
		"message_id", "msg-1",
		"input_id", "input-1",
		"codec", "json",
		"partition", "3",
	}, GetLogFields(ctx))
}

func TestGetPartitionDefault(t *testing.T) {
	assert.Equal(t, -1, GetPartition(context.Background()))
	assert.Equal(t, 0, GetPartition(WithPartition(context.Background(), 0)))
	assert.Equal(t, -1, GetPartition(nil))
	assert.Equal(t, -1, GetPartition(context.WithValue(context.Background(), "partition", 2)))
}

func TestEarlyLogPrefixesService(t *testing.T) {
	var out, errOut bytes.Buffer
	exitCode := 0
	l := &EarlyLog{service: "ingest-service", out: &out, errOut: &errOut, exit: func(code int) { exitCode = code }}

	l.Info("loaded %d streams", 4)
	l.Error("config: %s", "missing")
	assert.Equal(t, 0, exitCode)

	l.Fatal("giving up")

	assert.Equal(t, "INFO [ingest-service]: loaded 4 streams\n", out.String())
	assert.Equal(t, "ERROR [ingest-service]: config: missing\nFATAL [ingest-service]: giving up\n", errOut.String())
	assert.Equal(t, 1, exitCode)
}
