package consultation

import (
	"time"

	"github.com/google/uuid"
)

// Consultation outcomes drive what happens next: a prescription, an
// admission, a referral or a follow-up appointment.
const (
	OutcomeDischarged = "DISCHARGED"
	OutcomePharmacy   = "PHARMACY"
	OutcomeAdmitted   = "ADMITTED"
	OutcomeReferred   = "REFERRED"
	OutcomeFollowUp   = "FOLLOW_UP"
)

// Consultation maps to the consultation table.
type Consultation struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	AppointmentID    *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID         uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	Diagnosis        string     `db:"diagnosis" json:"diagnosis"`
	Symptoms         []string   `db:"symptoms" json:"symptoms"`
	LabRequests      []string   `db:"lab_requests" json:"lab_requests"`
	Notes            *string    `db:"notes" json:"notes,omitempty"`
	Outcome          string     `db:"outcome" json:"outcome"`
	ReferralFacility *string    `db:"referral_facility" json:"referral_facility,omitempty"`
	ReferralReason   *string    `db:"referral_reason" json:"referral_reason,omitempty"`
	FollowUpDate     *time.Time `db:"follow_up_date" json:"follow_up_date,omitempty"`
	ConsultationDate time.Time  `db:"consultation_date" json:"consultation_date"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}
