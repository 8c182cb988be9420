package decoding

import (
	"errors"
	"fmt"

	pkgerrors "logrouter/pkg/errors"
	"logrouter/pkg/models"
)

// DecodeError reports a codec that failed or panicked on one message.
type DecodeError struct {
	Codec   string
	InputID string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec %s failed to decode message from input %q: %v", e.Codec, e.InputID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return errors.Is(pkgerrors.ErrDecodeFailed, target)
}

// IsFatal is false even for a codec panic: the message is dropped and the
// partition keeps going.
func (e *DecodeError) IsFatal() bool {
	return false
}

// ProvenanceConflictError means a raw message carried more than one source
// node of the same type. It signals corrupted upstream state and is fatal.
type ProvenanceConflictError struct {
	NodeType models.SourceNodeType
	InputID  string
	Err      error
}

func (e *ProvenanceConflictError) Error() string {
	return fmt.Sprintf("multiple %s nodes on raw message (input %q): %v", e.NodeType, e.InputID, e.Err)
}

func (e *ProvenanceConflictError) Unwrap() error {
	return e.Err
}

func (e *ProvenanceConflictError) Is(target error) bool {
	return errors.Is(pkgerrors.ErrProvenanceConflict, target)
}

func (e *ProvenanceConflictError) IsFatal() bool {
	return true
}
