package emergency

import (
	"time"

	"github.com/google/uuid"
)

const (
	SeverityLow      = "LOW"
	SeverityModerate = "MODERATE"
	SeverityCritical = "CRITICAL"
)

const (
	StatusRegistered = "REGISTERED"
	StatusAdmitted   = "ADMITTED"
	StatusDischarged = "DISCHARGED"
	StatusReferred   = "REFERRED"
	StatusDeceased   = "DECEASED"
)

// Case maps to the emergency_case table. Walk-ins without a patient record
// carry only TemporaryPatientName until a record is linked.
type Case struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	PatientID            *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	TemporaryPatientName *string    `db:"temporary_patient_name" json:"temporary_patient_name,omitempty"`
	Severity             string     `db:"severity" json:"severity"`
	ChiefComplaint       string     `db:"chief_complaint" json:"chief_complaint"`
	TriageNotes          string     `db:"triage_notes" json:"triage_notes"`
	Temperature          *float64   `db:"temperature" json:"temperature,omitempty"`
	Pulse                *int       `db:"pulse" json:"pulse,omitempty"`
	BPSystolic           *int       `db:"bp_systolic" json:"bp_systolic,omitempty"`
	BPDiastolic          *int       `db:"bp_diastolic" json:"bp_diastolic,omitempty"`
	Status               string     `db:"status" json:"status"`
	HandledBy            *uuid.UUID `db:"handled_by" json:"handled_by,omitempty"`
	AdmissionID          *uuid.UUID `db:"admission_id" json:"admission_id,omitempty"`
	ReferralFacility     *string    `db:"referral_facility" json:"referral_facility,omitempty"`
	ReferralReason       *string    `db:"referral_reason" json:"referral_reason,omitempty"`
	ArrivedAt            time.Time  `db:"arrived_at" json:"arrived_at"`
	ResolvedAt           *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// Resolved reports whether the case reached a terminal status. Admitted
// cases stay open until an outcome is recorded.
func (c *Case) Resolved() bool {
	return c.Status == StatusDischarged || c.Status == StatusReferred || c.Status == StatusDeceased
}
