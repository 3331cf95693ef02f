package resource

import (
	"context"

	"github.com/google/uuid"
)

// ResourceRepository persists the resource projection.
type ResourceRepository interface {
	// FindByID retrieves a resource.
	FindByID(ctx context.Context, id uuid.UUID) (*Resource, error)

	// FindForUpdate retrieves a resource and row-locks it for the rest of the
	// surrounding transaction.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*Resource, error)

	// Upsert inserts or replaces the projection.
	Upsert(ctx context.Context, r *Resource) error
}
