package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lumenai/lumen-api/internal/domain/ledger"
)

// memoryRepository is an in-memory ledger.Repository for service tests. It
// reuses PlanDeduction so the drain policy under test is the package's own,
// and a mutex stands in for the per-user row lock.
type memoryRepository struct {
	mu      sync.Mutex
	buckets map[uuid.UUID][]*ledger.CreditBucket
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{buckets: make(map[uuid.UUID][]*ledger.CreditBucket)}
}

func (m *memoryRepository) CreateBucket(_ context.Context, b *ledger.CreditBucket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *b
	m.buckets[b.UserID] = append(m.buckets[b.UserID], &copied)
	return nil
}

func (m *memoryRepository) SumActive(_ context.Context, userID uuid.UUID, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, b := range m.buckets[userID] {
		if b.IsActive(now) {
			total += b.Credits
		}
	}
	return total, nil
}

func (m *memoryRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]ledger.CreditBucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ledger.CreditBucket, 0, len(m.buckets[userID]))
	for _, b := range m.buckets[userID] {
		out = append(out, *b)
	}
	return out, nil
}

func (m *memoryRepository) Deduct(_ context.Context, userID uuid.UUID, amount int, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]ledger.CreditBucket, 0, len(m.buckets[userID]))
	for _, b := range m.buckets[userID] {
		snapshot = append(snapshot, *b)
	}

	plan, err := ledger.PlanDeduction(snapshot, amount, now)
	if err != nil {
		return err
	}

	for _, d := range plan {
		for _, b := range m.buckets[userID] {
			if b.ID == d.BucketID {
				b.Credits -= d.Amount
			}
		}
	}
	return nil
}

// find returns the stored bucket by id, for direct store inspection.
func (m *memoryRepository) find(userID, bucketID uuid.UUID) *ledger.CreditBucket {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.buckets[userID] {
		if b.ID == bucketID {
			return b
		}
	}
	return nil
}

func intPtr(v int) *int { return &v }

func TestGrantCreatesIndependentBuckets(t *testing.T) {
	repo := newMemoryRepository()
	svc := ledger.NewService(repo)
	userID := uuid.New()
	ctx := context.Background()

	id1, err := svc.Grant(ctx, userID, 10, ledger.GrantParams{Type: ledger.BucketTypePurchased})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id2, err := svc.Grant(ctx, userID, 15, ledger.GrantParams{Type: ledger.BucketTypePurchased})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if id1 == id2 {
		t.Fatal("sequential grants must create distinct buckets")
	}

	buckets, err := svc.ListBuckets(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}

	balance, err := svc.GetBalance(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != 25 {
		t.Fatalf("expected balance 25, got %d", balance)
	}
}

func TestGrantZeroIsNoOp(t *testing.T) {
	repo := newMemoryRepository()
	svc := ledger.NewService(repo)
	userID := uuid.New()
	ctx := context.Background()

	for _, amount := range []int{0, -3} {
		id, err := svc.Grant(ctx, userID, amount, ledger.GrantParams{Type: ledger.BucketTypePromotional})
		if err != nil {
			t.Fatalf("amount %d: expected no-op, got %v", amount, err)
		}
		if id != uuid.Nil {
			t.Fatalf("amount %d: expected uuid.Nil, got %s", amount, id)
		}
	}

	buckets, _ := svc.ListBuckets(ctx, userID)
	if len(buckets) != 0 {
		t.Fatalf("no bucket may be created for non-positive grants, got %d", len(buckets))
	}

	balance, _ := svc.GetBalance(ctx, userID)
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}

func TestGrantInvalidType(t *testing.T) {
	svc := ledger.NewService(newMemoryRepository())

	_, err := svc.Grant(context.Background(), uuid.New(), 5, ledger.GrantParams{Type: "loyalty"})
	if !errors.Is(err, ledger.ErrInvalidBucketType) {
		t.Fatalf("expected ErrInvalidBucketType, got %v", err)
	}
}

func TestGrantWithExpiry(t *testing.T) {
	repo := newMemoryRepository()
	svc := ledger.NewService(repo)
	userID := uuid.New()
	ctx := context.Background()

	id, err := svc.Grant(ctx, userID, 5, ledger.GrantParams{
		Type:          ledger.BucketTypeSubscription,
		ExpiresInDays: intPtr(30),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := repo.find(userID, id)
	if b == nil {
		t.Fatal("bucket not stored")
	}
	if !b.ExpiresAt.Valid {
		t.Fatal("expected expiry to be set")
	}
	want := time.Now().AddDate(0, 0, 30)
	if diff := b.ExpiresAt.Time.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("expiry off by %v", diff)
	}
}

func TestDeductExact(t *testing.T) {
	repo := newMemoryRepository()
	svc := ledger.NewService(repo)
	userID := uuid.New()
	ctx := context.Background()

	svc.Grant(ctx, userID, 10, ledger.GrantParams{Type: ledger.BucketTypePurchased})
	svc.Grant(ctx, userID, 5, ledger.GrantParams{Type: ledger.BucketTypePromotional, ExpiresInDays: intPtr(2)})

	if err := svc.Deduct(ctx, userID, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, err := svc.GetBalance(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != 8 {
		t.Fatalf("expected balance 8, got %d", balance)
	}
}

func TestDeductAllOrNothing(t *testing.T) {
	repo := newMemoryRepository()
	svc := ledger.NewService(repo)
	userID := uuid.New()
	ctx := context.Background()

	id1, _ := svc.Grant(ctx, userID, 4, ledger.GrantParams{Type: ledger.BucketTypePromotional, ExpiresInDays: intPtr(1)})
	id2, _ := svc.Grant(ctx, userID, 3, ledger.GrantParams{Type: ledger.BucketTypePurchased})

	err := svc.Deduct(ctx, userID, 8)
	if !errors.Is(err, ledger.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}

	// Direct store inspection: nothing may have been drained.
	if b := repo.find(userID, id1); b.Credits != 4 {
		t.Fatalf("bucket 1 mutated on failed deduction: %d", b.Credits)
	}
	if b := repo.find(userID, id2); b.Credits != 3 {
		t.Fatalf("bucket 2 mutated on failed deduction: %d", b.Credits)
	}
}

func TestDeductInvalidAmount(t *testing.T) {
	svc := ledger.NewService(newMemoryRepository())

	for _, amount := range []int{0, -1} {
		err := svc.Deduct(context.Background(), uuid.New(), amount)
		if !errors.Is(err, ledger.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestDeductPriorityOrder(t *testing.T) {
	repo := newMemoryRepository()
	svc := ledger.NewService(repo)
	userID := uuid.New()
	ctx := context.Background()

	expiring, _ := svc.Grant(ctx, userID, 5, ledger.GrantParams{Type: ledger.BucketTypePurchased, ExpiresInDays: intPtr(1)})
	forever, _ := svc.Grant(ctx, userID, 10, ledger.GrantParams{Type: ledger.BucketTypePurchased})

	if err := svc.Deduct(ctx, userID, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b := repo.find(userID, expiring); b.Credits != 2 {
		t.Fatalf("expected expiring bucket at 2, got %d", b.Credits)
	}
	if b := repo.find(userID, forever); b.Credits != 10 {
		t.Fatalf("expected never-expiring bucket untouched, got %d", b.Credits)
	}
}

func TestDeductSpansBuckets(t *testing.T) {
	// End-to-end scenario: promo 5cr expiring in 2 days + purchased 20cr
	// forever, deduct 8 -> promo 0, purchased 17, balance 17.
	repo := newMemoryRepository()
	svc := ledger.NewService(repo)
	userID := uuid.New()
	ctx := context.Background()

	promo, _ := svc.Grant(ctx, userID, 5, ledger.GrantParams{Type: ledger.BucketTypePromotional, ExpiresInDays: intPtr(2)})
	purchased, _ := svc.Grant(ctx, userID, 20, ledger.GrantParams{Type: ledger.BucketTypePurchased})

	if err := svc.Deduct(ctx, userID, 8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b := repo.find(userID, promo); b.Credits != 0 {
		t.Fatalf("expected promo bucket exhausted, got %d", b.Credits)
	}
	if b := repo.find(userID, purchased); b.Credits != 17 {
		t.Fatalf("expected purchased bucket at 17, got %d", b.Credits)
	}

	balance, _ := svc.GetBalance(ctx, userID)
	if balance != 17 {
		t.Fatalf("expected balance 17, got %d", balance)
	}
}

func TestExpiredBucketExcludedFromBalance(t *testing.T) {
	repo := newMemoryRepository()
	svc := ledger.NewService(repo)
	userID := uuid.New()
	ctx := context.Background()

	// Insert an already-expired bucket directly; Grant never creates one.
	expired := &ledger.CreditBucket{
		ID:      uuid.New(),
		UserID:  userID,
		Credits: 50,
		Type:    ledger.BucketTypePromotional,
	}
	expired.ExpiresAt.Time = time.Now().Add(-time.Hour)
	expired.ExpiresAt.Valid = true
	repo.CreateBucket(ctx, expired)

	balance, err := svc.GetBalance(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expired credits counted in balance: %d", balance)
	}

	if err := svc.Deduct(ctx, userID, 1); !errors.Is(err, ledger.ErrInsufficientCredits) {
		t.Fatalf("expired credits must not be deductible, got %v", err)
	}
}

func TestHasSufficientBalance(t *testing.T) {
	svc := ledger.NewService(newMemoryRepository())
	userID := uuid.New()
	ctx := context.Background()

	svc.Grant(ctx, userID, 10, ledger.GrantParams{Type: ledger.BucketTypePurchased})

	ok, err := svc.HasSufficientBalance(ctx, userID, 10)
	if err != nil || !ok {
		t.Fatalf("expected sufficient balance, got ok=%v err=%v", ok, err)
	}

	ok, err = svc.HasSufficientBalance(ctx, userID, 11)
	if err != nil || ok {
		t.Fatalf("expected insufficient balance, got ok=%v err=%v", ok, err)
	}
}

func TestConcurrentDeductSingleWinner(t *testing.T) {
	repo := newMemoryRepository()
	svc := ledger.NewService(repo)
	userID := uuid.New()
	ctx := context.Background()

	const amount = 5
	svc.Grant(ctx, userID, amount, ledger.GrantParams{Type: ledger.BucketTypePurchased})

	const goroutines = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := svc.Deduct(ctx, userID, amount)
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ledger.ErrInsufficientCredits) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if success != 1 {
		t.Fatalf("expected exactly 1 successful deduction, got %d", success)
	}

	balance, _ := svc.GetBalance(ctx, userID)
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}
