package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DeductionOrderLess is the comparator for bucket drain order: soonest expiry
// first with never-expiring buckets last, then promotional before subscription
// before purchased. Kept independent of the storage engine so the policy is
// testable without a database.
func DeductionOrderLess(a, b *CreditBucket) bool {
	switch {
	case a.ExpiresAt.Valid && b.ExpiresAt.Valid:
		if !a.ExpiresAt.Time.Equal(b.ExpiresAt.Time) {
			return a.ExpiresAt.Time.Before(b.ExpiresAt.Time)
		}
	case a.ExpiresAt.Valid != b.ExpiresAt.Valid:
		return a.ExpiresAt.Valid
	}
	return typePriority[a.Type] < typePriority[b.Type]
}

// SortForDeduction sorts buckets in place into drain order.
func SortForDeduction(buckets []CreditBucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		return DeductionOrderLess(&buckets[i], &buckets[j])
	})
}

// Deduction is one bucket's share of a planned deduction.
type Deduction struct {
	BucketID uuid.UUID
	Amount   int
}

// PlanDeduction decides how amount is split across the given buckets at the
// given instant. Expired and empty buckets never participate. Returns
// ErrInsufficientCredits when the active total cannot cover amount; no plan is
// produced in that case, so callers either apply the whole plan or nothing.
func PlanDeduction(buckets []CreditBucket, amount int, now time.Time) ([]Deduction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	active := make([]CreditBucket, 0, len(buckets))
	total := 0
	for _, b := range buckets {
		if b.IsActive(now) {
			active = append(active, b)
			total += b.Credits
		}
	}
	if total < amount {
		return nil, ErrInsufficientCredits
	}

	SortForDeduction(active)

	plan := make([]Deduction, 0, len(active))
	remaining := amount
	for i := range active {
		if remaining == 0 {
			break
		}
		take := active[i].Credits
		if take > remaining {
			take = remaining
		}
		plan = append(plan, Deduction{BucketID: active[i].ID, Amount: take})
		remaining -= take
	}

	return plan, nil
}
