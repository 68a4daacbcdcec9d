package subscription

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status represents subscription status
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Subscription represents a user's recurring plan. Cancelling keeps the
// subscription active until the paid period ends; the renewal worker then
// marks it expired instead of renewing.
type Subscription struct {
	ID               uuid.UUID    `db:"id" json:"id"`
	UserID           uuid.UUID    `db:"user_id" json:"user_id"`
	PlanID           string       `db:"plan_id" json:"plan_id"`
	Status           Status       `db:"status" json:"status"`
	BillingPeriod    string       `db:"billing_period" json:"billing_period"`
	StartedAt        sql.NullTime `db:"started_at" json:"started_at,omitempty"`
	CurrentPeriodEnd sql.NullTime `db:"current_period_end" json:"current_period_end,omitempty"`
	CancelledAt      sql.NullTime `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the subscription grants plan benefits right now
func (s *Subscription) IsActive(now time.Time) bool {
	if s.Status != StatusActive {
		return false
	}
	return !s.CurrentPeriodEnd.Valid || s.CurrentPeriodEnd.Time.After(now)
}
