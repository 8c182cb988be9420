package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
	CodeTimeout            = "TIMEOUT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"

	CodeUnknownCodec       = "UNKNOWN_CODEC"
	CodeDecodeFailed       = "DECODE_FAILED"
	CodeProvenanceConflict = "PROVENANCE_CONFLICT"
	CodeInputNotFound      = "INPUT_NOT_FOUND"
)

var (
	ErrNotFound           = NewError(CodeNotFound, "resource not found", http.StatusNotFound)
	ErrValidation         = NewError(CodeValidation, "validation failed", http.StatusBadRequest)
	ErrInternal           = NewError(CodeInternal, "internal server error", http.StatusInternalServerError)
	ErrTimeout            = NewError(CodeTimeout, "operation timed out", http.StatusRequestTimeout)
	ErrServiceUnavailable = NewError(CodeServiceUnavailable, "service unavailable", http.StatusServiceUnavailable)
	ErrRateLimited        = NewError(CodeRateLimited, "rate limit exceeded", http.StatusTooManyRequests)

	ErrUnknownCodec       = NewError(CodeUnknownCodec, "no codec registered under this name", http.StatusUnprocessableEntity)
	ErrDecodeFailed       = NewError(CodeDecodeFailed, "codec failed to decode message", http.StatusUnprocessableEntity)
	ErrProvenanceConflict = NewError(CodeProvenanceConflict, "conflicting source node provenance", http.StatusInternalServerError)
	ErrInputNotFound      = NewError(CodeInputNotFound, "input not found", http.StatusNotFound)
)

// Per-message decode outcomes are never retried; replaying the same payload
// through the same codec produces the same result.
var terminalCodes = map[string]bool{
	CodeValidation:         true,
	CodeNotFound:           true,
	CodeInputNotFound:      true,
	CodeUnknownCodec:       true,
	CodeDecodeFailed:       true,
	CodeProvenanceConflict: true,
}

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

type retryClass int

const (
	classByCode retryClass = iota
	classRetryable
	classFatal
)

type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]interface{}
	Cause   error
	class   retryClass
}

// ErrorResponse is the JSON body written for a failed API request.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	ErrorCode string                 `json:"error_code"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

func NewError(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

func (e *Error) Error() string {
	msg := e.Message
	if detail, ok := e.Details["message"].(string); ok && detail != "" {
		msg = detail
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code, so copies made by WithCause
// or WithDetail still match their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// IsRetryable honours an explicit AsRetryable/AsFatal first, then the
// classification of the cause, then the code.
func (e *Error) IsRetryable() bool {
	switch e.class {
	case classRetryable:
		return true
	case classFatal:
		return false
	}
	var retryable RetryableError
	if errors.As(e.Cause, &retryable) {
		return retryable.IsRetryable()
	}
	var fatal FatalError
	if errors.As(e.Cause, &fatal) {
		return !fatal.IsFatal()
	}
	return !terminalCodes[e.Code]
}

func (e *Error) IsFatal() bool {
	switch e.class {
	case classRetryable:
		return false
	case classFatal:
		return true
	}
	var fatal FatalError
	if errors.As(e.Cause, &fatal) {
		return fatal.IsFatal()
	}
	return terminalCodes[e.Code]
}

func (e *Error) clone() *Error {
	err := *e
	return &err
}

func (e *Error) WithCause(cause error) *Error {
	err := e.clone()
	err.Cause = cause
	return err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	return e.WithDetails(map[string]interface{}{key: value})
}

// WithDetails merges details into a copy of the receiver's details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	err := e.clone()
	err.Details = make(map[string]interface{}, len(e.Details)+len(details))
	for k, v := range e.Details {
		err.Details[k] = v
	}
	for k, v := range details {
		err.Details[k] = v
	}
	return err
}

func (e *Error) AsRetryable() *Error {
	err := e.clone()
	err.class = classRetryable
	return err
}

func (e *Error) AsFatal() *Error {
	err := e.clone()
	err.class = classFatal
	return err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// Code returns the application error code carried by err, or "" when err is
// not one of ours.
func Code(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries any of codes.
func HasCode(err error, codes ...string) bool {
	code := Code(err)
	if code == "" {
		return false
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound, CodeInputNotFound)
}

func IsValidation(err error) bool {
	return HasCode(err, CodeValidation)
}

func IsFatal(err error) bool {
	var fatal FatalError
	return errors.As(err, &fatal) && fatal.IsFatal()
}

func ToHTTPStatus(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// ToErrorResponse renders err for an API client. Stack traces stay in the
// logs.
func ToErrorResponse(err error) ErrorResponse {
	appErr, ok := As(err)
	if !ok {
		appErr = ErrInternal.WithCause(err)
	}

	resp := ErrorResponse{Error: appErr.Message, ErrorCode: appErr.Code}
	for k, v := range appErr.Details {
		if k == "stack_trace" {
			continue
		}
		if resp.Details == nil {
			resp.Details = make(map[string]interface{}, len(appErr.Details))
		}
		resp.Details[k] = v
	}
	return resp
}
