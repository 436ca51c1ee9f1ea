package admission

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	TypeNormal    = "NORMAL"
	TypeEmergency = "EMERGENCY"
	TypeTransfer  = "TRANSFER"
)

const (
	StatusActive      = "ACTIVE"
	StatusDischarged  = "DISCHARGED"
	StatusTransferred = "TRANSFERRED"
)

// Admission maps to the admission table. AdmissionNumber is the sequential
// human-readable identifier (ADM-00001).
type Admission struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	AdmissionNumber       string     `db:"admission_number" json:"admission_number"`
	PatientID             uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID              uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	WardID                uuid.UUID  `db:"ward_id" json:"ward_id"`
	BedID                 *uuid.UUID `db:"bed_id" json:"bed_id,omitempty"`
	Type                  string     `db:"type" json:"type"`
	Status                string     `db:"status" json:"status"`
	Reason                string     `db:"reason" json:"reason"`
	AdmissionDate         time.Time  `db:"admission_date" json:"admission_date"`
	ExpectedDischargeDate *time.Time `db:"expected_discharge_date" json:"expected_discharge_date,omitempty"`
	DischargeDate         *time.Time `db:"discharge_date" json:"discharge_date,omitempty"`
	DischargeSummary      *string    `db:"discharge_summary" json:"discharge_summary,omitempty"`
	Medications           []string   `db:"medications" json:"medications"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// LengthOfStay is the stay in whole days, rounded up. Open admissions count
// up to now.
func (a *Admission) LengthOfStay() int {
	end := time.Now()
	if a.DischargeDate != nil {
		end = *a.DischargeDate
	}
	days := end.Sub(a.AdmissionDate).Hours() / 24
	if days <= 0 {
		return 0
	}
	return int(math.Ceil(days))
}

func (a *Admission) MarshalJSON() ([]byte, error) {
	type alias Admission
	return json.Marshal(struct {
		*alias
		LengthOfStay int `json:"length_of_stay"`
	}{(*alias)(a), a.LengthOfStay()})
}

// VitalSigns maps to the vital_signs table. Records are append-only.
type VitalSigns struct {
	ID              uuid.UUID `db:"id" json:"id"`
	AdmissionID     uuid.UUID `db:"admission_id" json:"admission_id"`
	RecordedBy      uuid.UUID `db:"recorded_by" json:"recorded_by"`
	Temperature     *float64  `db:"temperature" json:"temperature,omitempty"`
	BPSystolic      *int      `db:"bp_systolic" json:"bp_systolic,omitempty"`
	BPDiastolic     *int      `db:"bp_diastolic" json:"bp_diastolic,omitempty"`
	Pulse           *int      `db:"pulse" json:"pulse,omitempty"`
	RespiratoryRate *int      `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	SpO2            *int      `db:"spo2" json:"spo2,omitempty"`
	Glucose         *float64  `db:"glucose" json:"glucose,omitempty"`
	Weight          *float64  `db:"weight" json:"weight,omitempty"`
	Height          *float64  `db:"height" json:"height,omitempty"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	RecordedAt      time.Time `db:"recorded_at" json:"recorded_at"`
}

// BMI derives body mass index from weight (kg) and height (cm), or nil when
// either is missing.
func (v *VitalSigns) BMI() *float64 {
	if v.Weight == nil || v.Height == nil || *v.Height == 0 {
		return nil
	}
	meters := *v.Height / 100
	bmi := math.Round(*v.Weight/(meters*meters)*10) / 10
	return &bmi
}
