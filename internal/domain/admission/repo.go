package admission

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Admission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admission, error)
	Update(ctx context.Context, a *Admission) error
	List(ctx context.Context, status string, limit, offset int) ([]*Admission, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Admission, int, error)
	// RunInTx runs fn inside one database transaction; repository calls made
	// with the ctx passed to fn join it.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateVitals(ctx context.Context, v *VitalSigns) error
	ListVitals(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*VitalSigns, int, error)
	// ListVitalsSince returns an admission's vitals recorded at or after the
	// cutoff, oldest first.
	ListVitalsSince(ctx context.Context, admissionID uuid.UUID, since time.Time) ([]*VitalSigns, error)
}
