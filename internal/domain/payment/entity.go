package payment

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status represents payment status
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

// Provider represents payment provider
type Provider string

const ProviderPayLine Provider = "payline"

// Payment represents one checkout attempt. The payment ID doubles as the
// gateway order ID, so callbacks map back to a row without extra state.
type Payment struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	UserID      uuid.UUID      `db:"user_id" json:"user_id"`
	PackID      uuid.NullUUID  `db:"pack_id" json:"pack_id,omitempty"`
	PlanID      sql.NullString `db:"plan_id" json:"plan_id,omitempty"`
	Amount      float64        `db:"amount" json:"amount"`
	Currency    string         `db:"currency" json:"currency"`
	Status      Status         `db:"status" json:"status"`
	Provider    Provider       `db:"provider" json:"provider"`
	Description sql.NullString `db:"description" json:"description,omitempty"`
	PaidAt      sql.NullTime   `db:"paid_at" json:"paid_at,omitempty"`
	FailedAt    sql.NullTime   `db:"failed_at" json:"failed_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// IsPaid checks if payment went through
func (p *Payment) IsPaid() bool {
	return p.Status == StatusPaid
}
