package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GrantParams describes everything about a grant except the amount.
type GrantParams struct {
	Type BucketType

	// ExpiresInDays sets the bucket expiry relative to now; nil means the
	// bucket never expires.
	ExpiresInDays *int

	// SourceTransactionID is an optional back-reference to the payment,
	// renewal or job that caused the grant. Audit only, never dereferenced.
	SourceTransactionID *string
}

// Service is the credit ledger: the single owner of bucket state and the
// deduction-order policy. All spendable balance derives from active buckets;
// nothing else in the system may write credits.
type Service interface {
	// GetBalance returns the sum of credits over the user's active buckets.
	// Unknown users have balance 0.
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)

	// HasSufficientBalance reports GetBalance(userID) >= amount. Not atomic
	// with a later Deduct; callers needing atomicity rely on Deduct's
	// all-or-nothing contract instead.
	HasSufficientBalance(ctx context.Context, userID uuid.UUID, amount int) (bool, error)

	// Grant creates one new bucket. amount <= 0 is a no-op returning uuid.Nil
	// and no error. Grants are never merged with existing buckets.
	Grant(ctx context.Context, userID uuid.UUID, amount int, params GrantParams) (uuid.UUID, error)

	// Deduct removes amount from the user's balance, draining buckets in
	// deduction order. Either the full amount is removed or nothing is:
	// ErrInsufficientCredits leaves every bucket untouched.
	Deduct(ctx context.Context, userID uuid.UUID, amount int) error

	// ListBuckets returns every bucket the user has, including exhausted and
	// expired ones, newest first. Admin/audit use.
	ListBuckets(ctx context.Context, userID uuid.UUID) ([]CreditBucket, error)
}

// Repository is the persistence contract for credit buckets. Deduct must be
// transactional with per-user mutual exclusion: concurrent Deduct calls for
// the same user are serialized, different users proceed independently.
type Repository interface {
	CreateBucket(ctx context.Context, b *CreditBucket) error
	SumActive(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]CreditBucket, error)
	Deduct(ctx context.Context, userID uuid.UUID, amount int, now time.Time) error
}
