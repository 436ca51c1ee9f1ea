package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Transitions are one-way and strictly guarded.
const (
	StatusScheduled  = "SCHEDULED"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
	StatusNoShow     = "NO_SHOW"
)

const (
	TypeNormal    = "NORMAL"
	TypeEmergency = "EMERGENCY"
	TypeFollowUp  = "FOLLOW_UP"
)

// Appointment maps to the appointment table. Date carries the calendar day;
// TimeSlot is the half-hour slot in HH:MM form.
type Appointment struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	AppointmentNumber  string     `db:"appointment_number" json:"appointment_number"`
	PatientID          uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID           uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	DepartmentID       uuid.UUID  `db:"department_id" json:"department_id"`
	Date               time.Time  `db:"date" json:"date"`
	TimeSlot           string     `db:"time_slot" json:"time_slot"`
	Type               string     `db:"type" json:"type"`
	Status             string     `db:"status" json:"status"`
	ReasonForVisit     *string    `db:"reason_for_visit" json:"reason_for_visit,omitempty"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy        *uuid.UUID `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CreatedBy          uuid.UUID  `db:"created_by" json:"created_by"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Active reports whether the appointment still occupies its slot.
func (a *Appointment) Active() bool {
	return a.Status != StatusCancelled && a.Status != StatusNoShow
}

// WorkingSlots returns the default half-hour slot grid, 09:00 through 16:30.
func WorkingSlots() []string {
	slots := make([]string, 0, 16)
	for h := 9; h <= 16; h++ {
		slots = append(slots, formatSlot(h, 0), formatSlot(h, 30))
	}
	return slots
}

func formatSlot(hour, minute int) string {
	t := time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC)
	return t.Format("15:04")
}
