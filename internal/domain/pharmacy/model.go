package pharmacy

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	PaymentAwaiting      = "AWAITING_PAYMENT"
	PaymentPartiallyPaid = "PARTIALLY_PAID"
	PaymentPaid          = "PAID"
)

const (
	StatusPending            = "PENDING"
	StatusDispensed          = "DISPENSED"
	StatusPartiallyDispensed = "PARTIALLY_DISPENSED"
	StatusCancelled          = "CANCELLED"
)

const (
	RestockPending   = "PENDING"
	RestockApproved  = "APPROVED"
	RestockRejected  = "REJECTED"
	RestockFulfilled = "FULFILLED"
)

// Drug maps to the drug table.
type Drug struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	GenericName          *string    `db:"generic_name" json:"generic_name,omitempty"`
	Category             string     `db:"category" json:"category"`
	Description          *string    `db:"description" json:"description,omitempty"`
	DosageForm           *string    `db:"dosage_form" json:"dosage_form,omitempty"`
	Strength             *string    `db:"strength" json:"strength,omitempty"`
	UnitPrice            float64    `db:"unit_price" json:"unit_price"`
	StockQuantity        int        `db:"stock_quantity" json:"stock_quantity"`
	ReorderLevel         int        `db:"reorder_level" json:"reorder_level"`
	Manufacturer         *string    `db:"manufacturer" json:"manufacturer,omitempty"`
	BatchNumber          *string    `db:"batch_number" json:"batch_number,omitempty"`
	ExpiryDate           *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	RequiresPrescription bool       `db:"requires_prescription" json:"requires_prescription"`
	Active               bool       `db:"active" json:"active"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// IsLowStock reports whether stock has fallen to the reorder level.
func (d *Drug) IsLowStock() bool {
	return d.StockQuantity <= d.ReorderLevel
}

func (d *Drug) IsExpired() bool {
	return d.ExpiryDate != nil && d.ExpiryDate.Before(time.Now())
}

func (d *Drug) MarshalJSON() ([]byte, error) {
	type alias Drug
	return json.Marshal(struct {
		*alias
		IsLowStock bool `json:"is_low_stock"`
		IsExpired  bool `json:"is_expired"`
	}{(*alias)(d), d.IsLowStock(), d.IsExpired()})
}

// PrescriptionItem is one line of a prescription. UnitPrice is snapshotted
// from the drug at entry time.
type PrescriptionItem struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`
	DrugID         uuid.UUID `db:"drug_id" json:"drug_id"`
	DrugName       string    `db:"drug_name" json:"drug_name"`
	Quantity       int       `db:"quantity" json:"quantity"`
	Dosage         *string   `db:"dosage" json:"dosage,omitempty"`
	Frequency      *string   `db:"frequency" json:"frequency,omitempty"`
	Duration       *string   `db:"duration" json:"duration,omitempty"`
	UnitPrice      float64   `db:"unit_price" json:"unit_price"`
	TotalPrice     float64   `db:"total_price" json:"total_price"`
	Dispensed      bool      `db:"dispensed" json:"dispensed"`
}

// Prescription maps to the prescription table plus its items.
type Prescription struct {
	ID                 uuid.UUID           `db:"id" json:"id"`
	PrescriptionNumber string              `db:"prescription_number" json:"prescription_number"`
	PatientID          uuid.UUID           `db:"patient_id" json:"patient_id"`
	DoctorID           uuid.UUID           `db:"doctor_id" json:"doctor_id"`
	ConsultationID     *uuid.UUID          `db:"consultation_id" json:"consultation_id,omitempty"`
	Status             string              `db:"status" json:"status"`
	PaymentStatus      string              `db:"payment_status" json:"payment_status"`
	TotalAmount        float64             `db:"total_amount" json:"total_amount"`
	AmountPaid         float64             `db:"amount_paid" json:"amount_paid"`
	Notes              *string             `db:"notes" json:"notes,omitempty"`
	DispensedAt        *time.Time          `db:"dispensed_at" json:"dispensed_at,omitempty"`
	DispensedBy        *uuid.UUID          `db:"dispensed_by" json:"dispensed_by,omitempty"`
	Items              []*PrescriptionItem `db:"-" json:"items"`
	CreatedAt          time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at" json:"updated_at"`
}

func (p *Prescription) BalanceDue() float64 {
	due := p.TotalAmount - p.AmountPaid
	if due < 0 {
		return 0
	}
	return due
}

func (p *Prescription) MarshalJSON() ([]byte, error) {
	type alias Prescription
	return json.Marshal(struct {
		*alias
		BalanceDue float64 `json:"balance_due"`
	}{(*alias)(p), p.BalanceDue()})
}

// RestockRequest maps to the restock_request table.
type RestockRequest struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	DrugID            uuid.UUID  `db:"drug_id" json:"drug_id"`
	RequestedQuantity int        `db:"requested_quantity" json:"requested_quantity"`
	Reason            string     `db:"reason" json:"reason"`
	Status            string     `db:"status" json:"status"`
	RequestedBy       uuid.UUID  `db:"requested_by" json:"requested_by"`
	ApprovedBy        *uuid.UUID `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt        *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	RejectionReason   *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	FulfilledQuantity *int       `db:"fulfilled_quantity" json:"fulfilled_quantity,omitempty"`
	FulfilledAt       *time.Time `db:"fulfilled_at" json:"fulfilled_at,omitempty"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}
