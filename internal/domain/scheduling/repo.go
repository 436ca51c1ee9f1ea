package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	List(ctx context.Context, limit, offset int) ([]*Appointment, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	// ListByDoctorDate returns a doctor's appointments for a calendar day,
	// ordered by time slot.
	ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error)
	// SlotTaken reports whether a non-cancelled, non-no-show appointment
	// already occupies (doctor, date, slot).
	SlotTaken(ctx context.Context, doctorID uuid.UUID, date time.Time, slot string, exclude uuid.UUID) (bool, error)
	// BookedSlots returns the occupied slots for a doctor's day.
	BookedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error)
}
