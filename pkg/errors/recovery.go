package errors

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// RecoverPanic converts a recovered value into a fatal internal error that
// carries the stack of the panicking goroutine. It must be called from the
// deferred function that recovered r.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	var err error
	switch v := r.(type) {
	case error:
		err = fmt.Errorf("panic: %w", v)
	case string:
		err = fmt.Errorf("panic: %s", v)
	default:
		err = fmt.Errorf("panic: %v", v)
	}

	return ErrInternal.
		WithCause(err).
		WithDetail("panic", true).
		WithDetail("stack_trace", string(debug.Stack())).
		AsFatal()
}

// Guard runs fn and returns a panic inside it as a RecoverPanic error.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = RecoverPanic(r)
		}
	}()
	return fn()
}

// IsPanic reports whether err came from RecoverPanic.
func IsPanic(err error) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	panicked, _ := appErr.Details["panic"].(bool)
	return panicked
}
