package plan

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenai/lumen-api/internal/domain/ledger"
)

// Service exposes the purchase catalog and promo code redemption
type Service struct {
	repo   Repository
	ledger ledger.Service
	now    func() time.Time
}

// NewService creates catalog service
func NewService(repo Repository, ledgerSvc ledger.Service) *Service {
	return &Service{repo: repo, ledger: ledgerSvc, now: time.Now}
}

// ListPacks returns purchasable credit packs
func (s *Service) ListPacks(ctx context.Context) ([]CreditPack, error) {
	return s.repo.ListActivePacks(ctx)
}

// GetPack returns one pack by ID
func (s *Service) GetPack(ctx context.Context, id uuid.UUID) (*CreditPack, error) {
	return s.repo.GetPack(ctx, id)
}

// ListPlans returns subscribable plans
func (s *Service) ListPlans(ctx context.Context) ([]SubscriptionPlan, error) {
	return s.repo.ListActivePlans(ctx)
}

// GetPlan returns one plan by slug
func (s *Service) GetPlan(ctx context.Context, id string) (*SubscriptionPlan, error) {
	return s.repo.GetPlan(ctx, id)
}

// RedeemPromo redeems a promo code for the user and grants the promotional
// credits. The redemption claim is atomic; the grant happens after the claim
// so a code can never over-redeem.
func (s *Service) RedeemPromo(ctx context.Context, userID uuid.UUID, code string) (*RedeemPromoResponse, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	promo, err := s.repo.GetPromoByCode(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if err := promo.IsRedeemable(s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.ClaimRedemption(ctx, promo.ID, userID); err != nil {
		return nil, err
	}

	params := ledger.GrantParams{Type: ledger.BucketTypePromotional}
	if promo.ExpiresInDays.Valid {
		days := int(promo.ExpiresInDays.Int64)
		params.ExpiresInDays = &days
	}
	sourceID := "promo:" + promo.ID.String()
	params.SourceTransactionID = &sourceID

	bucketID, err := s.ledger.Grant(ctx, userID, promo.Credits, params)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID.String()).
			Str("promo", normalized).
			Msg("promo grant failed after claim")
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("promo", normalized).
		Int("credits", promo.Credits).
		Msg("promo code redeemed")

	return &RedeemPromoResponse{Credits: promo.Credits, BucketID: bucketID.String()}, nil
}

// CreatePack creates a credit pack (admin)
func (s *Service) CreatePack(ctx context.Context, req *CreatePackRequest) (*CreditPack, error) {
	now := s.now()
	p := &CreditPack{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Credits:     req.Credits,
		Price:       req.Price,
		IsActive:    true,
		SortOrder:   req.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.ExpiresInDays != nil {
		p.ExpiresInDays.Int64 = int64(*req.ExpiresInDays)
		p.ExpiresInDays.Valid = true
	}
	if err := s.repo.CreatePack(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePack updates a credit pack (admin)
func (s *Service) UpdatePack(ctx context.Context, id uuid.UUID, req *UpdatePackRequest) (*CreditPack, error) {
	p, err := s.repo.GetPack(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Name = req.Name
	p.Description = req.Description
	p.Credits = req.Credits
	p.Price = req.Price
	p.IsActive = req.IsActive
	p.SortOrder = req.SortOrder
	p.ExpiresInDays.Valid = req.ExpiresInDays != nil
	if req.ExpiresInDays != nil {
		p.ExpiresInDays.Int64 = int64(*req.ExpiresInDays)
	} else {
		p.ExpiresInDays.Int64 = 0
	}

	if err := s.repo.UpdatePack(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreatePlan creates a subscription plan (admin)
func (s *Service) CreatePlan(ctx context.Context, req *CreatePlanRequest) (*SubscriptionPlan, error) {
	p := &SubscriptionPlan{
		ID:               strings.ToLower(req.ID),
		Name:             req.Name,
		Description:      req.Description,
		PriceMonthly:     req.PriceMonthly,
		CreditsPerPeriod: req.CreditsPerPeriod,
		IsActive:         true,
		CreatedAt:        s.now(),
	}
	if req.PriceYearly != nil {
		p.PriceYearly.Float64 = *req.PriceYearly
		p.PriceYearly.Valid = true
	}
	if err := s.repo.CreatePlan(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreatePromo creates a promo code (admin)
func (s *Service) CreatePromo(ctx context.Context, req *CreatePromoRequest) (*PromoCode, error) {
	p := &PromoCode{
		ID:        uuid.New(),
		Code:      strings.ToUpper(strings.TrimSpace(req.Code)),
		Credits:   req.Credits,
		ValidFrom: s.now(),
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if req.ExpiresInDays != nil {
		p.ExpiresInDays.Int64 = int64(*req.ExpiresInDays)
		p.ExpiresInDays.Valid = true
	}
	if req.MaxRedemptions != nil {
		p.MaxRedemptions.Int64 = int64(*req.MaxRedemptions)
		p.MaxRedemptions.Valid = true
	}
	if req.ValidUntil != "" {
		until, err := time.Parse(time.RFC3339, req.ValidUntil)
		if err != nil {
			return nil, err
		}
		p.ValidUntil.Time = until
		p.ValidUntil.Valid = true
	}
	if err := s.repo.CreatePromo(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPromos lists promo codes (admin)
func (s *Service) ListPromos(ctx context.Context) ([]PromoCode, error) {
	return s.repo.ListPromos(ctx)
}
