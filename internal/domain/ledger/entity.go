package ledger

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// BucketType classifies how a credit bucket was granted.
type BucketType string

const (
	BucketTypePurchased    BucketType = "purchased"
	BucketTypePromotional  BucketType = "promotional"
	BucketTypeSubscription BucketType = "subscription"
)

// IsValidBucketType checks a raw type string against the known bucket types.
func IsValidBucketType(t string) bool {
	switch BucketType(t) {
	case BucketTypePurchased, BucketTypePromotional, BucketTypeSubscription:
		return true
	}
	return false
}

// typePriority orders bucket types for deduction among buckets with equal
// expiry: promotional drains first, then subscription, then purchased.
// Purchased credits are the ones the user paid real money for, so they are
// preserved the longest.
var typePriority = map[BucketType]int{
	BucketTypePromotional:  0,
	BucketTypeSubscription: 1,
	BucketTypePurchased:    2,
}

// CreditBucket is a single grant of credits to one user. Credits only ever
// decrease after creation; the bucket row itself is never deleted, so
// exhausted and expired buckets remain as audit history.
type CreditBucket struct {
	ID                  uuid.UUID      `db:"id" json:"id"`
	UserID              uuid.UUID      `db:"user_id" json:"user_id"`
	Credits             int            `db:"credits" json:"credits"`
	Type                BucketType     `db:"bucket_type" json:"type"`
	ExpiresAt           sql.NullTime   `db:"expires_at" json:"expires_at,omitempty"`
	SourceTransactionID sql.NullString `db:"source_transaction_id" json:"source_transaction_id,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
}

// IsExpired reports whether the bucket's expiry has passed at the given instant.
// A bucket without an expiry never expires.
func (b *CreditBucket) IsExpired(now time.Time) bool {
	return b.ExpiresAt.Valid && !b.ExpiresAt.Time.After(now)
}

// IsActive reports whether the bucket can contribute to balance: it still has
// credits and has not expired.
func (b *CreditBucket) IsActive(now time.Time) bool {
	return b.Credits > 0 && !b.IsExpired(now)
}
