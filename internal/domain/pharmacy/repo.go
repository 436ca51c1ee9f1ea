package pharmacy

import (
	"context"

	"github.com/google/uuid"
)

type DrugRepository interface {
	Create(ctx context.Context, d *Drug) error
	GetByID(ctx context.Context, id uuid.UUID) (*Drug, error)
	GetByName(ctx context.Context, name string) (*Drug, error)
	Update(ctx context.Context, d *Drug) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, includeInactive bool, limit, offset int) ([]*Drug, int, error)
	ListLowStock(ctx context.Context) ([]*Drug, error)
	ListExpired(ctx context.Context) ([]*Drug, error)
	// DeductStock subtracts quantity from stock in one conditional update.
	// Returns false without changing anything when stock is insufficient.
	DeductStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error)
	AddStock(ctx context.Context, id uuid.UUID, quantity int) error
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	MarkItemDispensed(ctx context.Context, itemID uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Prescription, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error)
	// ListPending returns paid prescriptions still awaiting dispensing,
	// oldest first.
	ListPending(ctx context.Context, limit, offset int) ([]*Prescription, int, error)
	// ListUnpaid returns prescriptions with an outstanding balance, newest
	// first.
	ListUnpaid(ctx context.Context, limit, offset int) ([]*Prescription, int, error)
}

type RestockRepository interface {
	Create(ctx context.Context, r *RestockRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*RestockRequest, error)
	Update(ctx context.Context, r *RestockRequest) error
	List(ctx context.Context, status string, limit, offset int) ([]*RestockRequest, int, error)
}

// TxRunner runs fn inside one database transaction; repository calls made
// with the ctx passed to fn join it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
