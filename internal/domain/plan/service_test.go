package plan

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lumenai/lumen-api/internal/domain/ledger"
)

type fakeRepo struct {
	promos      map[string]*PromoCode
	redemptions map[string]bool // promoID:userID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		promos:      make(map[string]*PromoCode),
		redemptions: make(map[string]bool),
	}
}

func (f *fakeRepo) ListActivePacks(context.Context) ([]CreditPack, error) { return nil, nil }
func (f *fakeRepo) GetPack(context.Context, uuid.UUID) (*CreditPack, error) {
	return nil, ErrPackNotFound
}
func (f *fakeRepo) CreatePack(context.Context, *CreditPack) error               { return nil }
func (f *fakeRepo) UpdatePack(context.Context, *CreditPack) error               { return nil }
func (f *fakeRepo) ListActivePlans(context.Context) ([]SubscriptionPlan, error) { return nil, nil }
func (f *fakeRepo) GetPlan(context.Context, string) (*SubscriptionPlan, error) {
	return nil, ErrPlanNotFound
}
func (f *fakeRepo) CreatePlan(context.Context, *SubscriptionPlan) error { return nil }
func (f *fakeRepo) UpdatePlan(context.Context, *SubscriptionPlan) error { return nil }
func (f *fakeRepo) CreatePromo(context.Context, *PromoCode) error       { return nil }
func (f *fakeRepo) ListPromos(context.Context) ([]PromoCode, error)     { return nil, nil }

func (f *fakeRepo) GetPromoByCode(_ context.Context, code string) (*PromoCode, error) {
	p, ok := f.promos[code]
	if !ok {
		return nil, ErrPromoNotFound
	}
	return p, nil
}

func (f *fakeRepo) ClaimRedemption(_ context.Context, promoID, userID uuid.UUID) error {
	key := promoID.String() + ":" + userID.String()
	if f.redemptions[key] {
		return ErrPromoAlreadyRedeemed
	}
	for _, p := range f.promos {
		if p.ID != promoID {
			continue
		}
		if p.MaxRedemptions.Valid && int64(p.RedemptionCount) >= p.MaxRedemptions.Int64 {
			return ErrPromoExhausted
		}
		p.RedemptionCount++
	}
	f.redemptions[key] = true
	return nil
}

type recordedGrant struct {
	UserID uuid.UUID
	Amount int
	Params ledger.GrantParams
}

type fakeLedger struct {
	grants []recordedGrant
}

func (f *fakeLedger) GetBalance(context.Context, uuid.UUID) (int, error) { return 0, nil }
func (f *fakeLedger) HasSufficientBalance(context.Context, uuid.UUID, int) (bool, error) {
	return true, nil
}
func (f *fakeLedger) Grant(_ context.Context, userID uuid.UUID, amount int, params ledger.GrantParams) (uuid.UUID, error) {
	f.grants = append(f.grants, recordedGrant{UserID: userID, Amount: amount, Params: params})
	return uuid.New(), nil
}
func (f *fakeLedger) Deduct(context.Context, uuid.UUID, int) error { return nil }
func (f *fakeLedger) ListBuckets(context.Context, uuid.UUID) ([]ledger.CreditBucket, error) {
	return nil, nil
}

func promoFixture(code string) *PromoCode {
	return &PromoCode{
		ID:        uuid.New(),
		Code:      code,
		Credits:   100,
		ValidFrom: time.Now().Add(-time.Hour),
		IsActive:  true,
		CreatedAt: time.Now(),
	}
}

func TestRedeemPromoGrantsPromotionalCredits(t *testing.T) {
	repo := newFakeRepo()
	led := &fakeLedger{}
	svc := NewService(repo, led)

	promo := promoFixture("LAUNCH100")
	promo.ExpiresInDays = sql.NullInt64{Int64: 14, Valid: true}
	repo.promos[promo.Code] = promo

	userID := uuid.New()
	resp, err := svc.RedeemPromo(context.Background(), userID, "  launch100 ")
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if resp.Credits != 100 {
		t.Fatalf("expected 100 credits, got %d", resp.Credits)
	}

	if len(led.grants) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(led.grants))
	}
	g := led.grants[0]
	if g.UserID != userID || g.Amount != 100 {
		t.Fatalf("unexpected grant: %+v", g)
	}
	if g.Params.Type != ledger.BucketTypePromotional {
		t.Fatalf("expected promotional bucket, got %s", g.Params.Type)
	}
	if g.Params.ExpiresInDays == nil || *g.Params.ExpiresInDays != 14 {
		t.Fatalf("expected 14 day expiry, got %+v", g.Params.ExpiresInDays)
	}
	if g.Params.SourceTransactionID == nil || *g.Params.SourceTransactionID != "promo:"+promo.ID.String() {
		t.Fatalf("expected promo source reference, got %+v", g.Params.SourceTransactionID)
	}
}

func TestRedeemPromoTwiceFails(t *testing.T) {
	repo := newFakeRepo()
	led := &fakeLedger{}
	svc := NewService(repo, led)

	promo := promoFixture("ONCE")
	repo.promos[promo.Code] = promo

	userID := uuid.New()
	if _, err := svc.RedeemPromo(context.Background(), userID, "ONCE"); err != nil {
		t.Fatalf("first redeem failed: %v", err)
	}
	if _, err := svc.RedeemPromo(context.Background(), userID, "ONCE"); err != ErrPromoAlreadyRedeemed {
		t.Fatalf("expected ErrPromoAlreadyRedeemed, got %v", err)
	}
	if len(led.grants) != 1 {
		t.Fatalf("expected exactly 1 grant, got %d", len(led.grants))
	}
}

func TestRedeemPromoExhausted(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeLedger{})

	promo := promoFixture("CAPPED")
	promo.MaxRedemptions = sql.NullInt64{Int64: 1, Valid: true}
	promo.RedemptionCount = 1
	repo.promos[promo.Code] = promo

	_, err := svc.RedeemPromo(context.Background(), uuid.New(), "CAPPED")
	if err != ErrPromoExhausted {
		t.Fatalf("expected ErrPromoExhausted, got %v", err)
	}
}

func TestRedeemPromoOutsideValidityWindow(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeLedger{})

	expired := promoFixture("EXPIRED")
	expired.ValidUntil = sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true}
	repo.promos[expired.Code] = expired

	future := promoFixture("SOON")
	future.ValidFrom = time.Now().Add(time.Hour)
	repo.promos[future.Code] = future

	if _, err := svc.RedeemPromo(context.Background(), uuid.New(), "EXPIRED"); err != ErrPromoExpired {
		t.Fatalf("expected ErrPromoExpired, got %v", err)
	}
	if _, err := svc.RedeemPromo(context.Background(), uuid.New(), "SOON"); err != ErrPromoNotStarted {
		t.Fatalf("expected ErrPromoNotStarted, got %v", err)
	}
}

func TestRedeemPromoInactive(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeLedger{})

	promo := promoFixture("DISABLED")
	promo.IsActive = false
	repo.promos[promo.Code] = promo

	if _, err := svc.RedeemPromo(context.Background(), uuid.New(), "DISABLED"); err != ErrPromoInactive {
		t.Fatalf("expected ErrPromoInactive, got %v", err)
	}
}
