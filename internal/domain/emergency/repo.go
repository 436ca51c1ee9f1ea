package emergency

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	Update(ctx context.Context, c *Case) error
	List(ctx context.Context, status string, limit, offset int) ([]*Case, int, error)
	// ListActive returns unresolved cases ordered by severity, critical
	// first, then arrival time, oldest first.
	ListActive(ctx context.Context) ([]*Case, error)
}
