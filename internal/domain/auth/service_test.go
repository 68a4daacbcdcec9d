package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lumenai/lumen-api/internal/domain/ledger"
	"github.com/lumenai/lumen-api/internal/domain/user"
	"github.com/lumenai/lumen-api/internal/pkg/jwt"
	"github.com/lumenai/lumen-api/internal/pkg/password"
)

type fakeUserRepo struct {
	byEmail        map[string]*user.User
	byReferralCode map[string]*user.User
	byID           map[uuid.UUID]*user.User
	created        []*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail:        make(map[string]*user.User),
		byReferralCode: make(map[string]*user.User),
		byID:           make(map[uuid.UUID]*user.User),
	}
}

func (f *fakeUserRepo) add(u *user.User) {
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	if u.ReferralCode != "" {
		f.byReferralCode[u.ReferralCode] = u
	}
}

func (f *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	f.created = append(f.created, u)
	f.add(u)
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return f.byID[id], nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUserRepo) GetByReferralCode(_ context.Context, code string) (*user.User, error) {
	return f.byReferralCode[code], nil
}

func (f *fakeUserRepo) Update(context.Context, *user.User) error { return nil }
func (f *fakeUserRepo) UpdateEmailVerified(context.Context, uuid.UUID, bool) error {
	return nil
}
func (f *fakeUserRepo) UpdatePassword(context.Context, uuid.UUID, string) error { return nil }
func (f *fakeUserRepo) UpdateStatus(context.Context, uuid.UUID, user.Status) error {
	return nil
}
func (f *fakeUserRepo) UpdateLastLogin(context.Context, uuid.UUID, string) error { return nil }
func (f *fakeUserRepo) List(context.Context, int, int) ([]user.User, error)      { return nil, nil }
func (f *fakeUserRepo) Count(context.Context) (int, error)                       { return 0, nil }

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

func newTestService(repo *fakeUserRepo, led *fakeLedger) *Service {
	jwtService := jwt.NewService("secret", time.Minute, time.Hour)
	return NewService(repo, led, jwtService, nil, nil)
}

func TestRegisterGrantsWelcomeCredits(t *testing.T) {
	repo := newFakeUserRepo()
	led := &fakeLedger{}
	svc := newTestService(repo, led)

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Email:       "New@Example.com",
		Password:    "password123",
		DisplayName: "New User",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if resp.User.Email != "new@example.com" {
		t.Fatalf("expected normalized email, got %q", resp.User.Email)
	}
	if resp.User.ReferralCode == "" {
		t.Fatal("expected a referral code to be assigned")
	}
	if resp.Tokens.AccessToken == "" {
		t.Fatal("expected access token")
	}

	if len(led.grants) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(led.grants))
	}
	g := led.grants[0]
	if g.Amount != welcomeCredits || g.Params.Type != ledger.BucketTypePromotional {
		t.Fatalf("unexpected welcome grant: %+v", g)
	}
	if g.Params.ExpiresInDays == nil || *g.Params.ExpiresInDays != welcomeCreditsDays {
		t.Fatalf("welcome grant should expire in %d days", welcomeCreditsDays)
	}
}

func TestRegisterWithReferralCodeRewardsReferrer(t *testing.T) {
	repo := newFakeUserRepo()
	led := &fakeLedger{}
	svc := newTestService(repo, led)

	referrer := &user.User{ID: uuid.New(), Email: "ref@example.com", ReferralCode: "REFCODE1"}
	repo.add(referrer)

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Email:        "invitee@example.com",
		Password:     "password123",
		DisplayName:  "Invitee",
		ReferralCode: "refcode1",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	created := repo.created[0]
	if !created.ReferredBy.Valid || created.ReferredBy.UUID != referrer.ID {
		t.Fatalf("expected referred_by to point at referrer, got %+v", created.ReferredBy)
	}

	if len(led.grants) != 2 {
		t.Fatalf("expected welcome + referral grants, got %d", len(led.grants))
	}
	var referral *recordedGrant
	for i := range led.grants {
		if led.grants[i].UserID == referrer.ID {
			referral = &led.grants[i]
		}
	}
	if referral == nil {
		t.Fatal("no grant recorded for referrer")
	}
	if referral.Amount != referralCredits || referral.Params.Type != ledger.BucketTypePromotional {
		t.Fatalf("unexpected referral grant: %+v", referral)
	}
	if referral.Params.SourceTransactionID == nil ||
		*referral.Params.SourceTransactionID != "referral:"+resp.User.ID.String() {
		t.Fatalf("referral grant should reference the new signup, got %+v", referral.Params.SourceTransactionID)
	}
}

func TestRegisterUnknownReferralCodeFails(t *testing.T) {
	repo := newFakeUserRepo()
	led := &fakeLedger{}
	svc := newTestService(repo, led)

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:        "x@example.com",
		Password:     "password123",
		DisplayName:  "X",
		ReferralCode: "NOSUCH00",
	})
	if err != ErrInvalidReferralCode {
		t.Fatalf("expected ErrInvalidReferralCode, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatal("no user should be created on bad referral code")
	}
	if len(led.grants) != 0 {
		t.Fatal("no credits should be granted on bad referral code")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo, &fakeLedger{})

	repo.add(&user.User{ID: uuid.New(), Email: "taken@example.com"})

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:       "Taken@example.com",
		Password:    "password123",
		DisplayName: "Dup",
	})
	if err != ErrEmailAlreadyExists {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo, &fakeLedger{})

	hash, _ := password.Hash("correct-password")
	repo.add(&user.User{ID: uuid.New(), Email: "u@example.com", PasswordHash: hash, Status: user.StatusActive})

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "u@example.com", Password: "wrong"}, "127.0.0.1")
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginSuspendedAccount(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo, &fakeLedger{})

	hash, _ := password.Hash("password123")
	repo.add(&user.User{ID: uuid.New(), Email: "s@example.com", PasswordHash: hash, Status: user.StatusSuspended})

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "s@example.com", Password: "password123"}, "127.0.0.1")
	if err != ErrAccountSuspended {
		t.Fatalf("expected ErrAccountSuspended, got %v", err)
	}
}

func TestGenerateReferralCodeShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := generateReferralCode()
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if len(code) != referralCodeLength {
			t.Fatalf("expected %d chars, got %q", referralCodeLength, code)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Fatalf("codes look non-random: %d unique of 50", len(seen))
	}
}
