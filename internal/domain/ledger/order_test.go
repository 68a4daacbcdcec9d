package ledger

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func bucket(credits int, t BucketType, expiresIn time.Duration, now time.Time) CreditBucket {
	b := CreditBucket{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Credits: credits,
		Type:    t,
	}
	if expiresIn != 0 {
		b.ExpiresAt = sql.NullTime{Time: now.Add(expiresIn), Valid: true}
	}
	return b
}

func TestDeductionOrderExpirySortsFirst(t *testing.T) {
	now := time.Now()

	soon := bucket(5, BucketTypePurchased, 24*time.Hour, now)
	later := bucket(5, BucketTypePromotional, 48*time.Hour, now)
	never := bucket(5, BucketTypePromotional, 0, now)

	buckets := []CreditBucket{never, later, soon}
	SortForDeduction(buckets)

	if buckets[0].ID != soon.ID {
		t.Fatalf("expected soonest-expiring bucket first, got %v", buckets[0].Type)
	}
	if buckets[2].ID != never.ID {
		t.Fatal("expected never-expiring bucket last")
	}
}

func TestDeductionOrderTypeTieBreak(t *testing.T) {
	now := time.Now()
	expiry := sql.NullTime{Time: now.Add(24 * time.Hour), Valid: true}

	purchased := CreditBucket{ID: uuid.New(), Credits: 1, Type: BucketTypePurchased, ExpiresAt: expiry}
	subscription := CreditBucket{ID: uuid.New(), Credits: 1, Type: BucketTypeSubscription, ExpiresAt: expiry}
	promotional := CreditBucket{ID: uuid.New(), Credits: 1, Type: BucketTypePromotional, ExpiresAt: expiry}

	buckets := []CreditBucket{purchased, subscription, promotional}
	SortForDeduction(buckets)

	want := []BucketType{BucketTypePromotional, BucketTypeSubscription, BucketTypePurchased}
	for i, w := range want {
		if buckets[i].Type != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, buckets[i].Type)
		}
	}
}

func TestDeductionOrderNeverExpiringTieBreak(t *testing.T) {
	purchased := CreditBucket{ID: uuid.New(), Credits: 1, Type: BucketTypePurchased}
	promotional := CreditBucket{ID: uuid.New(), Credits: 1, Type: BucketTypePromotional}

	if !DeductionOrderLess(&promotional, &purchased) {
		t.Fatal("promotional should drain before purchased among never-expiring buckets")
	}
	if DeductionOrderLess(&purchased, &promotional) {
		t.Fatal("comparator must not be symmetric for unequal types")
	}
}

func TestPlanDeductionDrainsSoonestFirst(t *testing.T) {
	now := time.Now()

	b1 := bucket(5, BucketTypePurchased, 24*time.Hour, now)
	b2 := bucket(10, BucketTypePurchased, 0, now)

	plan, err := PlanDeduction([]CreditBucket{b2, b1}, 3, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan) != 1 {
		t.Fatalf("expected 1 step, got %d", len(plan))
	}
	if plan[0].BucketID != b1.ID || plan[0].Amount != 3 {
		t.Fatalf("expected 3 credits from the expiring bucket, got %+v", plan[0])
	}
}

func TestPlanDeductionSpansBuckets(t *testing.T) {
	now := time.Now()

	promo := bucket(5, BucketTypePromotional, 48*time.Hour, now)
	purchased := bucket(20, BucketTypePurchased, 0, now)

	plan, err := PlanDeduction([]CreditBucket{purchased, promo}, 8, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan))
	}
	if plan[0].BucketID != promo.ID || plan[0].Amount != 5 {
		t.Fatalf("expected promo bucket drained fully first, got %+v", plan[0])
	}
	if plan[1].BucketID != purchased.ID || plan[1].Amount != 3 {
		t.Fatalf("expected 3 from purchased bucket, got %+v", plan[1])
	}
}

func TestPlanDeductionExcludesExpired(t *testing.T) {
	now := time.Now()

	expired := bucket(100, BucketTypePurchased, -time.Hour, now)
	active := bucket(5, BucketTypePurchased, 0, now)

	_, err := PlanDeduction([]CreditBucket{expired, active}, 6, now)
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expired credits must not be spendable, got %v", err)
	}

	plan, err := PlanDeduction([]CreditBucket{expired, active}, 5, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan) != 1 || plan[0].BucketID != active.ID {
		t.Fatalf("expected only the active bucket in the plan, got %+v", plan)
	}
}

func TestPlanDeductionExcludesExhausted(t *testing.T) {
	now := time.Now()

	empty := bucket(0, BucketTypePromotional, 24*time.Hour, now)
	active := bucket(3, BucketTypePurchased, 0, now)

	plan, err := PlanDeduction([]CreditBucket{empty, active}, 3, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan) != 1 || plan[0].BucketID != active.ID {
		t.Fatalf("exhausted bucket must not appear in plan, got %+v", plan)
	}
}

func TestPlanDeductionInsufficient(t *testing.T) {
	now := time.Now()

	plan, err := PlanDeduction([]CreditBucket{bucket(4, BucketTypePurchased, 0, now)}, 5, now)
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if plan != nil {
		t.Fatal("no plan may be produced on insufficient balance")
	}
}

func TestPlanDeductionInvalidAmount(t *testing.T) {
	now := time.Now()

	for _, amount := range []int{0, -1} {
		if _, err := PlanDeduction(nil, amount, now); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestBucketIsActive(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name   string
		b      CreditBucket
		active bool
	}{
		{"with balance, no expiry", bucket(1, BucketTypePurchased, 0, now), true},
		{"with balance, future expiry", bucket(1, BucketTypePurchased, time.Hour, now), true},
		{"exhausted", bucket(0, BucketTypePurchased, 0, now), false},
		{"expired", bucket(1, BucketTypePurchased, -time.Minute, now), false},
		{"expires exactly now", CreditBucket{Credits: 1, Type: BucketTypePurchased, ExpiresAt: sql.NullTime{Time: now, Valid: true}}, false},
	}

	for _, tc := range cases {
		if got := tc.b.IsActive(now); got != tc.active {
			t.Errorf("%s: IsActive = %v, want %v", tc.name, got, tc.active)
		}
	}
}
