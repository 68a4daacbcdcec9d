package payment

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenai/lumen-api/internal/domain/ledger"
	"github.com/lumenai/lumen-api/internal/domain/plan"
	"github.com/lumenai/lumen-api/internal/domain/user"
	"github.com/lumenai/lumen-api/internal/pkg/email"
	"github.com/lumenai/lumen-api/internal/pkg/payline"
)

// PackCatalog is the slice of the catalog the payment flow needs
type PackCatalog interface {
	GetPack(ctx context.Context, id uuid.UUID) (*plan.CreditPack, error)
}

// SubscriptionActivator is called when a subscription payment is confirmed.
// Wired after construction to break the payment <-> subscription cycle.
type SubscriptionActivator interface {
	ActivatePaid(ctx context.Context, userID uuid.UUID, planID string, paymentID uuid.UUID) error
}

// CheckoutResult carries what the client needs to continue the payment
type CheckoutResult struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	PaymentURL string    `json:"payment_url"`
}

// Service owns the payment lifecycle: checkout initiation, the gateway
// callback, and crediting the ledger once money is confirmed.
type Service struct {
	repo      Repository
	packs     PackCatalog
	users     user.Repository
	ledger    ledger.Service
	gateway   *payline.Client
	cfg       payline.Config
	emails    email.Sender
	activator SubscriptionActivator
	now       func() time.Time
}

// NewService creates payment service
func NewService(repo Repository, packs PackCatalog, users user.Repository, ledgerSvc ledger.Service, cfg payline.Config, emails email.Sender) *Service {
	if emails == nil {
		emails = email.NopSender{}
	}
	return &Service{
		repo:    repo,
		packs:   packs,
		users:   users,
		ledger:  ledgerSvc,
		gateway: payline.NewClient(cfg),
		cfg:     cfg,
		emails:  emails,
		now:     time.Now,
	}
}

// SetSubscriptionActivator wires the subscription side after construction
func (s *Service) SetSubscriptionActivator(a SubscriptionActivator) {
	s.activator = a
}

// CheckoutPack starts a credit pack purchase
func (s *Service) CheckoutPack(ctx context.Context, userID, packID uuid.UUID) (*CheckoutResult, error) {
	pack, err := s.packs.GetPack(ctx, packID)
	if err != nil {
		return nil, err
	}
	if !pack.IsActive {
		return nil, ErrPackUnavailable
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, user.ErrUserNotFound
	}

	now := s.now()
	p := &Payment{
		ID:          uuid.New(),
		UserID:      userID,
		PackID:      uuid.NullUUID{UUID: pack.ID, Valid: true},
		Amount:      pack.Price,
		Currency:    "USD",
		Status:      StatusPending,
		Provider:    ProviderPayLine,
		Description: sql.NullString{String: fmt.Sprintf("%s (%d credits)", pack.Name, pack.Credits), Valid: true},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	checkout, err := s.gateway.CreateCheckout(payline.CheckoutRequest{
		Amount:      p.Amount,
		OrderID:     p.ID.String(),
		Description: p.Description.String,
		Email:       u.Email,
		Custom:      map[string]string{"pl_kind": "pack"},
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", p.ID.String()).
		Str("user_id", userID.String()).
		Float64("amount", p.Amount).
		Msg("pack checkout initiated")

	return &CheckoutResult{PaymentID: p.ID, PaymentURL: checkout.PaymentURL}, nil
}

// CheckoutSubscription starts a subscription payment. Called by the
// subscription service, which owns plan and period validation.
func (s *Service) CheckoutSubscription(ctx context.Context, userID uuid.UUID, planID string, amount float64, description string) (*CheckoutResult, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, user.ErrUserNotFound
	}

	now := s.now()
	p := &Payment{
		ID:          uuid.New(),
		UserID:      userID,
		PlanID:      sql.NullString{String: planID, Valid: true},
		Amount:      amount,
		Currency:    "USD",
		Status:      StatusPending,
		Provider:    ProviderPayLine,
		Description: sql.NullString{String: description, Valid: true},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	checkout, err := s.gateway.CreateCheckout(payline.CheckoutRequest{
		Amount:      amount,
		OrderID:     p.ID.String(),
		Description: description,
		Email:       u.Email,
		Custom:      map[string]string{"pl_kind": "subscription"},
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{PaymentID: p.ID, PaymentURL: checkout.PaymentURL}, nil
}

// HandleCallback processes the PayLine result callback. Re-deliveries of an
// already processed callback succeed without granting twice.
func (s *Service) HandleCallback(ctx context.Context, form url.Values) error {
	payload, err := payline.ParseCallbackForm(form)
	if err != nil {
		return err
	}

	paymentID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		return ErrPaymentNotFound
	}

	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrPaymentNotFound
	}

	if !payline.VerifyResultSignature(payload.Amount, payload.OrderID, payload.Signature, s.cfg.Secret2, payload.Custom) {
		log.Warn().
			Str("payment_id", p.ID.String()).
			Msg("payline callback with bad signature")
		return ErrInvalidSignature
	}

	callbackAmount, err := payline.ParseAmount(payload.Amount)
	if err != nil {
		return ErrAmountMismatch
	}
	expected, err := payline.ParseAmount(payline.FormatAmount(p.Amount))
	if err != nil {
		return ErrAmountMismatch
	}
	if !payline.AmountsEqual(expected, callbackAmount) {
		log.Warn().
			Str("payment_id", p.ID.String()).
			Str("got", payload.Amount).
			Float64("want", p.Amount).
			Msg("payline callback amount mismatch")
		return ErrAmountMismatch
	}

	first, err := s.repo.MarkPaid(ctx, p.ID)
	if err != nil {
		return err
	}
	if !first {
		log.Info().Str("payment_id", p.ID.String()).Msg("duplicate payline callback ignored")
		return nil
	}

	return s.fulfill(ctx, p)
}

// fulfill credits the ledger (or activates the subscription) for a payment
// that just flipped to paid.
func (s *Service) fulfill(ctx context.Context, p *Payment) error {
	switch {
	case p.PackID.Valid:
		return s.fulfillPack(ctx, p)
	case p.PlanID.Valid:
		if s.activator == nil {
			return fmt.Errorf("subscription payment %s confirmed but no activator wired", p.ID)
		}
		return s.activator.ActivatePaid(ctx, p.UserID, p.PlanID.String, p.ID)
	default:
		return fmt.Errorf("paid payment %s references neither pack nor plan", p.ID)
	}
}

func (s *Service) fulfillPack(ctx context.Context, p *Payment) error {
	pack, err := s.packs.GetPack(ctx, p.PackID.UUID)
	if err != nil {
		return fmt.Errorf("paid pack lookup: %w", err)
	}

	params := ledger.GrantParams{Type: ledger.BucketTypePurchased}
	if pack.ExpiresInDays.Valid {
		days := int(pack.ExpiresInDays.Int64)
		params.ExpiresInDays = &days
	}
	sourceID := p.ID.String()
	params.SourceTransactionID = &sourceID

	if _, err := s.ledger.Grant(ctx, p.UserID, pack.Credits, params); err != nil {
		return fmt.Errorf("grant purchased credits: %w", err)
	}

	log.Info().
		Str("payment_id", p.ID.String()).
		Str("user_id", p.UserID.String()).
		Int("credits", pack.Credits).
		Msg("pack purchase fulfilled")

	if u, err := s.users.GetByID(ctx, p.UserID); err == nil && u != nil {
		s.emails.SendTemplate(u.Email, u.DisplayName, "purchase_receipt", "Your Lumen receipt", map[string]interface{}{
			"Name":    u.DisplayName,
			"Pack":    pack.Name,
			"Credits": pack.Credits,
			"Amount":  payline.FormatAmount(p.Amount),
		})
	}

	return nil
}

// ListUserPayments returns a user's payment history
func (s *Service) ListUserPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}
