package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines subscription data access
type Repository interface {
	Create(ctx context.Context, s *Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	GetCurrentByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	GetPendingByUserAndPlan(ctx context.Context, userID uuid.UUID, planID string) (*Subscription, error)
	Activate(ctx context.Context, id uuid.UUID, startedAt, periodEnd time.Time) error
	Renew(ctx context.Context, id uuid.UUID, periodEnd time.Time) error
	Cancel(ctx context.Context, id uuid.UUID) error
	MarkExpired(ctx context.Context, id uuid.UUID) error

	// ListDue returns active or cancelled subscriptions whose paid period has
	// ended, for the renewal worker.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Subscription, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates subscription repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const subscriptionColumns = `id, user_id, plan_id, status, billing_period, started_at,
	       current_period_end, cancelled_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, s *Subscription) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, plan_id, status, billing_period, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, s.UserID, s.PlanID, s.Status, s.BillingPeriod, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("subscription repository create: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	var s Subscription
	err := r.db.GetContext(ctx, &s, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) GetCurrentByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	var s Subscription
	err := r.db.GetContext(ctx, &s, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1 AND status IN ('active', 'cancelled')
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) GetPendingByUserAndPlan(ctx context.Context, userID uuid.UUID, planID string) (*Subscription, error) {
	var s Subscription
	err := r.db.GetContext(ctx, &s, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1 AND plan_id = $2 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, planID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) Activate(ctx context.Context, id uuid.UUID, startedAt, periodEnd time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'active', started_at = $2, current_period_end = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, startedAt, periodEnd)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *repository) Renew(ctx context.Context, id uuid.UUID, periodEnd time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET current_period_end = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id, periodEnd)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *repository) Cancel(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoActiveSubscription
	}
	return nil
}

func (r *repository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status IN ('active', 'cancelled')
	`, id)
	return err
}

func (r *repository) ListDue(ctx context.Context, now time.Time, limit int) ([]Subscription, error) {
	subs := []Subscription{}
	err := r.db.SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE status IN ('active', 'cancelled')
		  AND current_period_end IS NOT NULL
		  AND current_period_end <= $1
		ORDER BY current_period_end
		LIMIT $2
	`, now, limit)
	return subs, err
}
