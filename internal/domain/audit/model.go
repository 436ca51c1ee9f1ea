package audit

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionLogin  = "LOGIN"
	ActionLogout = "LOGOUT"
	ActionView   = "VIEW"
)

const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// Log maps to the audit_log table. Rows are append-only.
type Log struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Action       string     `db:"action" json:"action"`
	EntityType   string     `db:"entity_type" json:"entity_type"`
	EntityID     *string    `db:"entity_id" json:"entity_id,omitempty"`
	Description  string     `db:"description" json:"description"`
	IPAddress    *string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    *string    `db:"user_agent" json:"user_agent,omitempty"`
	Status       string     `db:"status" json:"status"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
