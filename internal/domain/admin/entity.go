package admin

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog records one admin action for the audit trail
type AuditLog struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	AdminID    uuid.UUID       `db:"admin_id" json:"admin_id"`
	Action     string          `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	EntityID   uuid.NullUUID   `db:"entity_id" json:"entity_id,omitempty"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// DashboardStats is the admin overview snapshot
type DashboardStats struct {
	Users struct {
		Total     int `db:"-" json:"total"`
		Suspended int `db:"-" json:"suspended"`
		NewToday  int `db:"-" json:"new_today"`
	} `json:"users"`

	Jobs struct {
		Total      int `db:"-" json:"total"`
		Queued     int `db:"-" json:"queued"`
		FailedWeek int `db:"-" json:"failed_this_week"`
	} `json:"jobs"`

	Payments struct {
		PaidTotal    int     `db:"-" json:"paid_total"`
		RevenueMonth float64 `db:"-" json:"revenue_this_month"`
	} `json:"payments"`

	Subscriptions struct {
		Active int `db:"-" json:"active"`
	} `json:"subscriptions"`
}
