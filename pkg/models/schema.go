package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateRawMessage checks the journal record shape before it enters the
// pipeline. Codec-level validation happens during decoding.
func ValidateRawMessage(raw *RawMessage) error {
	if raw == nil {
		return &ValidationError{
			Field:   "raw",
			Message: "raw message cannot be nil",
		}
	}

	if raw.CodecName == "" {
		return &ValidationError{
			Field:   "codec_name",
			Message: "codec name is required",
		}
	}

	for i, node := range raw.SourceNodes {
		if node.Type != SourceNodeServer && node.Type != SourceNodeRadio {
			return &ValidationError{
				Field:   fmt.Sprintf("source_nodes[%d].type", i),
				Message: fmt.Sprintf("unknown source node type %q", node.Type),
			}
		}
		if node.InputID == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("source_nodes[%d].input_id", i),
				Message: "input id is required",
			}
		}
	}

	return nil
}
