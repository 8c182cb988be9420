package logging

import (
	"context"
	"strconv"
)

// Field names used both as log keys and to look values up in a context.
const (
	TraceIDKey     = "trace_id"
	RequestIDKey   = "request_id"
	MessageIDKey   = "message_id"
	ServiceNameKey = "service_name"
	InputIDKey     = "input_id"
	CodecKey       = "codec"
	PartitionKey   = "partition"
)

type ctxKey string

// logFieldOrder is the order fields appear in a log line.
var logFieldOrder = []string{
	TraceIDKey,
	RequestIDKey,
	MessageIDKey,
	ServiceNameKey,
	InputIDKey,
	CodecKey,
}

func withString(ctx context.Context, key, value string) context.Context {
	return context.WithValue(ctx, ctxKey(key), value)
}

func stringValue(ctx context.Context, key string) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxKey(key)).(string)
	return v
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withString(ctx, TraceIDKey, traceID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, RequestIDKey, requestID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return withString(ctx, MessageIDKey, messageID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return withString(ctx, ServiceNameKey, serviceName)
}

func WithInputID(ctx context.Context, inputID string) context.Context {
	return withString(ctx, InputIDKey, inputID)
}

func WithCodec(ctx context.Context, codec string) context.Context {
	return withString(ctx, CodecKey, codec)
}

func WithPartition(ctx context.Context, partition int) context.Context {
	return context.WithValue(ctx, ctxKey(PartitionKey), partition)
}

func GetTraceID(ctx context.Context) string     { return stringValue(ctx, TraceIDKey) }
func GetRequestID(ctx context.Context) string   { return stringValue(ctx, RequestIDKey) }
func GetMessageID(ctx context.Context) string   { return stringValue(ctx, MessageIDKey) }
func GetServiceName(ctx context.Context) string { return stringValue(ctx, ServiceNameKey) }
func GetInputID(ctx context.Context) string     { return stringValue(ctx, InputIDKey) }
func GetCodec(ctx context.Context) string       { return stringValue(ctx, CodecKey) }

// GetPartition returns -1 when no partition is attached.
func GetPartition(ctx context.Context) int {
	if ctx == nil {
		return -1
	}
	if partition, ok := ctx.Value(ctxKey(PartitionKey)).(int); ok {
		return partition
	}
	return -1
}

// GetLogFields returns the key/value pairs attached to ctx, ready to pass to
// a *w logging call.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 2*(len(logFieldOrder)+1))
	for _, key := range logFieldOrder {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}
	if partition := GetPartition(ctx); partition >= 0 {
		fields = append(fields, PartitionKey, strconv.Itoa(partition))
	}
	return fields
}
