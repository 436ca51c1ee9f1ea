package ward

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeGeneral   = "GENERAL"
	TypePrivate   = "PRIVATE"
	TypeICU       = "ICU"
	TypeEmergency = "EMERGENCY"
	TypePediatric = "PEDIATRIC"
	TypeMaternity = "MATERNITY"
)

// Bed statuses. AVAILABLE and RESERVED beds can be occupied; OCCUPIED beds
// are freed when their admission ends.
const (
	BedAvailable   = "AVAILABLE"
	BedOccupied    = "OCCUPIED"
	BedMaintenance = "MAINTENANCE"
	BedReserved    = "RESERVED"
)

// Ward maps to the ward table.
type Ward struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Type         string     `db:"type" json:"type"`
	Capacity     int        `db:"capacity" json:"capacity"`
	Floor        *string    `db:"floor" json:"floor,omitempty"`
	DepartmentID *uuid.UUID `db:"department_id" json:"department_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Bed maps to the bed table. BedNumber is unique within its ward.
type Bed struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	WardID          uuid.UUID  `db:"ward_id" json:"ward_id"`
	BedNumber       string     `db:"bed_number" json:"bed_number"`
	Status          string     `db:"status" json:"status"`
	Features        []string   `db:"features" json:"features"`
	LastMaintenance *time.Time `db:"last_maintenance" json:"last_maintenance,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
