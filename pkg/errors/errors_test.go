package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Classification(t *testing.T) {
	tests := []struct {
		name          string
		err           *Error
		wantRetryable bool
		wantFatal     bool
	}{
		{name: "unknown codec", err: ErrUnknownCodec, wantRetryable: false, wantFatal: true},
		{name: "decode failed", err: ErrDecodeFailed, wantRetryable: false, wantFatal: true},
		{name: "provenance conflict", err: ErrProvenanceConflict, wantRetryable: false, wantFatal: true},
		{name: "input not found", err: ErrInputNotFound, wantRetryable: false, wantFatal: true},
		{name: "service unavailable", err: ErrServiceUnavailable, wantRetryable: true, wantFatal: false},
		{name: "forced retryable", err: ErrDecodeFailed.AsRetryable(), wantRetryable: true, wantFatal: false},
		{name: "forced fatal", err: ErrTimeout.AsFatal(), wantRetryable: false, wantFatal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRetryable, tt.err.IsRetryable())
			assert.Equal(t, tt.wantFatal, tt.err.IsFatal())
		})
	}
}

func TestError_WithDetailDoesNotMutateSentinel(t *testing.T) {
	err := ErrUnknownCodec.WithDetail("codec", "gelf")

	assert.Equal(t, "gelf", err.Details["codec"])
	assert.NotContains(t, ErrUnknownCodec.Details, "codec")
}

func TestCodeAndHelpers(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", ErrInputNotFound.WithCause(stderrors.New("no rows")))

	assert.Equal(t, "INPUT_NOT_FOUND", Code(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.True(t, IsFatal(wrapped))
	assert.Equal(t, http.StatusNotFound, ToHTTPStatus(wrapped))
	assert.Equal(t, "", Code(stderrors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(stderrors.New("plain")))
}

func TestRecoverPanic(t *testing.T) {
	assert.Nil(t, RecoverPanic(nil))

	err := RecoverPanic("boom")
	assert.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "boom")

	wrapped := RecoverPanic(stderrors.New("bad"))
	assert.True(t, IsPanic(wrapped))
	assert.False(t, IsPanic(ErrInternal.AsFatal()))
	assert.False(t, IsPanic(stderrors.New("bad")))
}

func TestGuard(t *testing.T) {
	assert.NoError(t, Guard(func() error { return nil }))

	plain := stderrors.New("plain")
	assert.Same(t, plain, Guard(func() error { return plain }))

	err := Guard(func() error {
		var m map[string]int
		m["x"] = 1
		return nil
	})
	require.Error(t, err)
	assert.True(t, IsPanic(err))
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "assignment to entry in nil map")
}

func TestError_IsMatchesByCode(t *testing.T) {
	derived := ErrInputNotFound.WithCause(fmt.Errorf("no rows")).WithDetail("input_id", "in-1")
	wrapped := fmt.Errorf("resolve: %w", derived)

	assert.True(t, stderrors.Is(wrapped, ErrInputNotFound))
	assert.False(t, stderrors.Is(wrapped, ErrNotFound))
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", ErrUnknownCodec.WithDetail("codec", "gelf"))

	assert.True(t, HasCode(err, CodeDecodeFailed, CodeUnknownCodec))
	assert.False(t, HasCode(err, CodeDecodeFailed))
	assert.False(t, HasCode(stderrors.New("plain"), ""))
}

func TestWithDetailsMerges(t *testing.T) {
	base := ErrDecodeFailed.WithDetail("codec", "raw")
	merged := base.WithDetails(map[string]interface{}{"input_id": "in-1"})

	assert.Equal(t, map[string]interface{}{"codec": "raw", "input_id": "in-1"}, merged.Details)
	assert.Len(t, base.Details, 1)
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(ErrInputNotFound.WithDetail("input_id", "in-1"))
	assert.Equal(t, "INPUT_NOT_FOUND", resp.ErrorCode)
	assert.Equal(t, "input not found", resp.Error)
	assert.Equal(t, "in-1", resp.Details["input_id"])

	resp = ToErrorResponse(Guard(func() error { panic("boom") }))
	assert.Equal(t, CodeInternal, resp.ErrorCode)
	assert.NotContains(t, resp.Details, "stack_trace")
	assert.Equal(t, true, resp.Details["panic"])

	resp = ToErrorResponse(stderrors.New("plain"))
	assert.Equal(t, CodeInternal, resp.ErrorCode)
	assert.Nil(t, resp.Details)
}
