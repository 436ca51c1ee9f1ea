package ward

import (
	"context"

	"github.com/google/uuid"
)

type WardRepository interface {
	Create(ctx context.Context, w *Ward) error
	GetByID(ctx context.Context, id uuid.UUID) (*Ward, error)
	GetByName(ctx context.Context, name string) (*Ward, error)
	Update(ctx context.Context, w *Ward) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, includeInactive bool, limit, offset int) ([]*Ward, int, error)
}

type BedRepository interface {
	Create(ctx context.Context, b *Bed) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bed, error)
	GetByWardAndNumber(ctx context.Context, wardID uuid.UUID, number string) (*Bed, error)
	Update(ctx context.Context, b *Bed) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByWard(ctx context.Context, wardID uuid.UUID) ([]*Bed, error)
	CountByWard(ctx context.Context, wardID uuid.UUID) (int, error)
	// ListAvailable returns AVAILABLE beds, optionally narrowed to a ward
	// type, grouped by ward.
	ListAvailable(ctx context.Context, wardType string) ([]*Bed, error)
	// SetStatusIf flips a bed's status only when it currently holds one of
	// the expected statuses. Returns false when the guard fails.
	SetStatusIf(ctx context.Context, id uuid.UUID, to string, from ...string) (bool, error)
}
