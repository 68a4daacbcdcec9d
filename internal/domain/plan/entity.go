package plan

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// BillingPeriod represents billing cycle
type BillingPeriod string

const (
	BillingMonthly BillingPeriod = "monthly"
	BillingYearly  BillingPeriod = "yearly"
)

// CreditPack is a one-time purchase of credits. Credits bought from a pack
// land in a single purchased bucket; ExpiresInDays fixes that bucket's
// lifetime, NULL means the credits never expire.
type CreditPack struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	Description   string        `db:"description" json:"description"`
	Credits       int           `db:"credits" json:"credits"`
	Price         float64       `db:"price" json:"price"`
	ExpiresInDays sql.NullInt64 `db:"expires_in_days" json:"expires_in_days,omitempty"`
	IsActive      bool          `db:"is_active" json:"is_active"`
	SortOrder     int           `db:"sort_order" json:"sort_order"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// SubscriptionPlan is a recurring plan. Each billing period the subscriber
// receives CreditsPerPeriod credits in a subscription bucket that expires
// when the period ends.
type SubscriptionPlan struct {
	ID               string          `db:"id" json:"id"` // slug, e.g. "creator"
	Name             string          `db:"name" json:"name"`
	Description      string          `db:"description" json:"description"`
	PriceMonthly     float64         `db:"price_monthly" json:"price_monthly"`
	PriceYearly      sql.NullFloat64 `db:"price_yearly" json:"price_yearly,omitempty"`
	CreditsPerPeriod int             `db:"credits_per_period" json:"credits_per_period"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// PeriodDays returns the billing period length in days.
func PeriodDays(period BillingPeriod) int {
	if period == BillingYearly {
		return 365
	}
	return 30
}

// PromoCode grants promotional credits when redeemed. Each user may redeem a
// code once; MaxRedemptions caps total redemptions across users.
type PromoCode struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	Code            string        `db:"code" json:"code"`
	Credits         int           `db:"credits" json:"credits"`
	ExpiresInDays   sql.NullInt64 `db:"expires_in_days" json:"expires_in_days,omitempty"`
	ValidFrom       time.Time     `db:"valid_from" json:"valid_from"`
	ValidUntil      sql.NullTime  `db:"valid_until" json:"valid_until,omitempty"`
	MaxRedemptions  sql.NullInt64 `db:"max_redemptions" json:"max_redemptions,omitempty"`
	RedemptionCount int           `db:"redemption_count" json:"redemption_count"`
	IsActive        bool          `db:"is_active" json:"is_active"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}

// IsRedeemable reports whether a code can still be redeemed at the given time.
func (p *PromoCode) IsRedeemable(now time.Time) error {
	if !p.IsActive {
		return ErrPromoInactive
	}
	if now.Before(p.ValidFrom) {
		return ErrPromoNotStarted
	}
	if p.ValidUntil.Valid && now.After(p.ValidUntil.Time) {
		return ErrPromoExpired
	}
	if p.MaxRedemptions.Valid && int64(p.RedemptionCount) >= p.MaxRedemptions.Int64 {
		return ErrPromoExhausted
	}
	return nil
}
