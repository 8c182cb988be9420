package inputs

import (
	"context"

	"logrouter/pkg/models"
)

// Registry resolves an input id to a metadata snapshot. Implementations
// return an error matching pkg/errors.ErrInputNotFound when the input no
// longer exists.
type Registry interface {
	Resolve(ctx context.Context, inputID string) (*models.InputMetadata, error)
}

type RegistryFunc func(ctx context.Context, inputID string) (*models.InputMetadata, error)

func (f RegistryFunc) Resolve(ctx context.Context, inputID string) (*models.InputMetadata, error) {
	return f(ctx, inputID)
}
