package audit

import (
	"context"

	"github.com/google/uuid"
)

type Filter struct {
	UserID     *uuid.UUID
	Action     string
	EntityType string
}

type Repository interface {
	Create(ctx context.Context, l *Log) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Log, int, error)
}
