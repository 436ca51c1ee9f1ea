package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. PatientNumber is the human-readable
// sequential identifier (PAT-00001) assigned once at registration.
type Patient struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	PatientNumber         string    `db:"patient_number" json:"patient_number"`
	FirstName             string    `db:"first_name" json:"first_name"`
	LastName              string    `db:"last_name" json:"last_name"`
	DateOfBirth           time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender                string    `db:"gender" json:"gender"`
	Phone                 string    `db:"phone" json:"phone"`
	Email                 *string   `db:"email" json:"email,omitempty"`
	Address               *string   `db:"address" json:"address,omitempty"`
	EmergencyContactName  *string   `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string   `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	BloodGroup            *string   `db:"blood_group" json:"blood_group,omitempty"`
	Allergies             []string  `db:"allergies" json:"allergies"`
	CardIssued            bool      `db:"card_issued" json:"card_issued"`
	Active                bool      `db:"active" json:"active"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Age in whole years as of now.
func (p *Patient) Age() int {
	now := time.Now()
	years := now.Year() - p.DateOfBirth.Year()
	if now.YearDay() < p.DateOfBirth.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
