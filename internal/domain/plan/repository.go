package plan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const sqlStateUniqueViolation = "23505"

// Repository handles catalog database operations
type Repository interface {
	ListActivePacks(ctx context.Context) ([]CreditPack, error)
	GetPack(ctx context.Context, id uuid.UUID) (*CreditPack, error)
	CreatePack(ctx context.Context, p *CreditPack) error
	UpdatePack(ctx context.Context, p *CreditPack) error

	ListActivePlans(ctx context.Context) ([]SubscriptionPlan, error)
	GetPlan(ctx context.Context, id string) (*SubscriptionPlan, error)
	CreatePlan(ctx context.Context, p *SubscriptionPlan) error
	UpdatePlan(ctx context.Context, p *SubscriptionPlan) error

	GetPromoByCode(ctx context.Context, code string) (*PromoCode, error)
	CreatePromo(ctx context.Context, p *PromoCode) error
	ListPromos(ctx context.Context) ([]PromoCode, error)

	// ClaimRedemption records a redemption and bumps the counter atomically.
	// Returns ErrPromoAlreadyRedeemed if the user redeemed this code before
	// and ErrPromoExhausted if the redemption cap was hit concurrently.
	ClaimRedemption(ctx context.Context, promoID, userID uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates catalog repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListActivePacks(ctx context.Context) ([]CreditPack, error) {
	packs := []CreditPack{}
	err := r.db.SelectContext(ctx, &packs, `
		SELECT id, name, description, credits, price, expires_in_days, is_active, sort_order, created_at, updated_at
		FROM credit_packs
		WHERE is_active = true
		ORDER BY sort_order, price
	`)
	return packs, err
}

func (r *repository) GetPack(ctx context.Context, id uuid.UUID) (*CreditPack, error) {
	var p CreditPack
	err := r.db.GetContext(ctx, &p, `
		SELECT id, name, description, credits, price, expires_in_days, is_active, sort_order, created_at, updated_at
		FROM credit_packs
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) CreatePack(ctx context.Context, p *CreditPack) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credit_packs (id, name, description, credits, price, expires_in_days, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Name, p.Description, p.Credits, p.Price, p.ExpiresInDays, p.IsActive, p.SortOrder)
	if err != nil {
		return fmt.Errorf("create credit pack: %w", err)
	}
	return nil
}

func (r *repository) UpdatePack(ctx context.Context, p *CreditPack) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE credit_packs
		SET name = $2, description = $3, credits = $4, price = $5,
		    expires_in_days = $6, is_active = $7, sort_order = $8, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Credits, p.Price, p.ExpiresInDays, p.IsActive, p.SortOrder)
	if err != nil {
		return fmt.Errorf("update credit pack: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPackNotFound
	}
	return nil
}

func (r *repository) ListActivePlans(ctx context.Context) ([]SubscriptionPlan, error) {
	plans := []SubscriptionPlan{}
	err := r.db.SelectContext(ctx, &plans, `
		SELECT id, name, description, price_monthly, price_yearly, credits_per_period, is_active, created_at
		FROM subscription_plans
		WHERE is_active = true
		ORDER BY price_monthly
	`)
	return plans, err
}

func (r *repository) GetPlan(ctx context.Context, id string) (*SubscriptionPlan, error) {
	var p SubscriptionPlan
	err := r.db.GetContext(ctx, &p, `
		SELECT id, name, description, price_monthly, price_yearly, credits_per_period, is_active, created_at
		FROM subscription_plans
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) CreatePlan(ctx context.Context, p *SubscriptionPlan) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscription_plans (id, name, description, price_monthly, price_yearly, credits_per_period, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.Description, p.PriceMonthly, p.PriceYearly, p.CreditsPerPeriod, p.IsActive)
	if err != nil {
		return fmt.Errorf("create subscription plan: %w", err)
	}
	return nil
}

func (r *repository) UpdatePlan(ctx context.Context, p *SubscriptionPlan) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscription_plans
		SET name = $2, description = $3, price_monthly = $4, price_yearly = $5,
		    credits_per_period = $6, is_active = $7
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.PriceMonthly, p.PriceYearly, p.CreditsPerPeriod, p.IsActive)
	if err != nil {
		return fmt.Errorf("update subscription plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (r *repository) GetPromoByCode(ctx context.Context, code string) (*PromoCode, error) {
	var p PromoCode
	err := r.db.GetContext(ctx, &p, `
		SELECT id, code, credits, expires_in_days, valid_from, valid_until,
		       max_redemptions, redemption_count, is_active, created_at
		FROM promo_codes
		WHERE code = $1
	`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPromoNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) CreatePromo(ctx context.Context, p *PromoCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO promo_codes (id, code, credits, expires_in_days, valid_from, valid_until, max_redemptions, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Code, p.Credits, p.ExpiresInDays, p.ValidFrom, p.ValidUntil, p.MaxRedemptions, p.IsActive)
	if err != nil {
		return fmt.Errorf("create promo code: %w", err)
	}
	return nil
}

func (r *repository) ListPromos(ctx context.Context) ([]PromoCode, error) {
	promos := []PromoCode{}
	err := r.db.SelectContext(ctx, &promos, `
		SELECT id, code, credits, expires_in_days, valid_from, valid_until,
		       max_redemptions, redemption_count, is_active, created_at
		FROM promo_codes
		ORDER BY created_at DESC
	`)
	return promos, err
}

func (r *repository) ClaimRedemption(ctx context.Context, promoID, userID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO promo_redemptions (id, promo_code_id, user_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), promoID, userID, time.Now())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == sqlStateUniqueViolation {
			return ErrPromoAlreadyRedeemed
		}
		return err
	}

	// Guard against racing past the cap
	res, err := tx.ExecContext(ctx, `
		UPDATE promo_codes
		SET redemption_count = redemption_count + 1
		WHERE id = $1
		  AND (max_redemptions IS NULL OR redemption_count < max_redemptions)
	`, promoID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPromoExhausted
	}

	return tx.Commit()
}
