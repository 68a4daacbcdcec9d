package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenai/lumen-api/internal/domain/ledger"
	"github.com/lumenai/lumen-api/internal/domain/payment"
	"github.com/lumenai/lumen-api/internal/domain/plan"
)

// PlanCatalog is the slice of the catalog the subscription flow needs
type PlanCatalog interface {
	GetPlan(ctx context.Context, id string) (*plan.SubscriptionPlan, error)
}

// CheckoutService starts gateway payments for subscriptions
type CheckoutService interface {
	CheckoutSubscription(ctx context.Context, userID uuid.UUID, planID string, amount float64, description string) (*payment.CheckoutResult, error)
}

// Service owns the subscription lifecycle. Each paid period issues one
// subscription credit bucket that expires when the period does.
type Service struct {
	repo     Repository
	plans    PlanCatalog
	payments CheckoutService
	ledger   ledger.Service
	now      func() time.Time
}

// NewService creates subscription service
func NewService(repo Repository, plans PlanCatalog, payments CheckoutService, ledgerSvc ledger.Service) *Service {
	return &Service{
		repo:     repo,
		plans:    plans,
		payments: payments,
		ledger:   ledgerSvc,
		now:      time.Now,
	}
}

// Subscribe creates a pending subscription and starts its first payment
func (s *Service) Subscribe(ctx context.Context, userID uuid.UUID, planID string, period plan.BillingPeriod) (*payment.CheckoutResult, error) {
	if period != plan.BillingMonthly && period != plan.BillingYearly {
		return nil, ErrInvalidBillingPeriod
	}

	p, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrPlanUnavailable
	}

	amount := p.PriceMonthly
	if period == plan.BillingYearly {
		if !p.PriceYearly.Valid {
			return nil, ErrInvalidBillingPeriod
		}
		amount = p.PriceYearly.Float64
	}

	current, err := s.repo.GetCurrentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current != nil && current.IsActive(s.now()) {
		return nil, ErrAlreadySubscribed
	}

	now := s.now()
	sub := &Subscription{
		ID:            uuid.New(),
		UserID:        userID,
		PlanID:        p.ID,
		Status:        StatusPending,
		BillingPeriod: string(period),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}

	description := fmt.Sprintf("%s plan (%s)", p.Name, period)
	return s.payments.CheckoutSubscription(ctx, userID, p.ID, amount, description)
}

// ActivatePaid activates the subscription once its payment is confirmed.
// Implements the payment service's activator contract.
func (s *Service) ActivatePaid(ctx context.Context, userID uuid.UUID, planID string, paymentID uuid.UUID) error {
	sub, err := s.repo.GetPendingByUserAndPlan(ctx, userID, planID)
	if err != nil {
		return err
	}
	if sub == nil {
		return fmt.Errorf("%w: no pending subscription for user %s plan %s", ErrSubscriptionNotFound, userID, planID)
	}

	now := s.now()
	days := plan.PeriodDays(plan.BillingPeriod(sub.BillingPeriod))
	periodEnd := now.AddDate(0, 0, days)

	if err := s.repo.Activate(ctx, sub.ID, now, periodEnd); err != nil {
		return err
	}

	if err := s.grantPeriodCredits(ctx, sub, days, paymentID.String()); err != nil {
		return err
	}

	log.Info().
		Str("subscription_id", sub.ID.String()).
		Str("user_id", userID.String()).
		Str("plan_id", planID).
		Time("period_end", periodEnd).
		Msg("subscription activated")

	return nil
}

// Current returns the user's current subscription, nil when there is none
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return s.repo.GetCurrentByUser(ctx, userID)
}

// Cancel stops renewal. Benefits and already granted credits run until the
// period ends.
func (s *Service) Cancel(ctx context.Context, userID uuid.UUID) error {
	sub, err := s.repo.GetCurrentByUser(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil || sub.Status != StatusActive {
		return ErrNoActiveSubscription
	}
	return s.repo.Cancel(ctx, sub.ID)
}

// RenewDue processes every subscription whose period has ended: cancelled
// ones expire, active ones roll into a new period with fresh credits.
// Returns how many were renewed and how many expired.
func (s *Service) RenewDue(ctx context.Context, batchSize int) (renewed, expired int, err error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	due, err := s.repo.ListDue(ctx, s.now(), batchSize)
	if err != nil {
		return 0, 0, err
	}

	for i := range due {
		sub := &due[i]

		if sub.Status == StatusCancelled {
			if err := s.repo.MarkExpired(ctx, sub.ID); err != nil {
				log.Error().Err(err).Str("subscription_id", sub.ID.String()).Msg("expire failed")
				continue
			}
			expired++
			continue
		}

		days := plan.PeriodDays(plan.BillingPeriod(sub.BillingPeriod))
		periodEnd := s.now().AddDate(0, 0, days)

		if err := s.repo.Renew(ctx, sub.ID, periodEnd); err != nil {
			log.Error().Err(err).Str("subscription_id", sub.ID.String()).Msg("renew failed")
			continue
		}
		if err := s.grantPeriodCredits(ctx, sub, days, "renewal:"+sub.ID.String()); err != nil {
			log.Error().Err(err).Str("subscription_id", sub.ID.String()).Msg("renewal grant failed")
			continue
		}
		renewed++
	}

	return renewed, expired, nil
}

func (s *Service) grantPeriodCredits(ctx context.Context, sub *Subscription, periodDays int, sourceID string) error {
	p, err := s.plans.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return err
	}

	_, err = s.ledger.Grant(ctx, sub.UserID, p.CreditsPerPeriod, ledger.GrantParams{
		Type:                ledger.BucketTypeSubscription,
		ExpiresInDays:       &periodDays,
		SourceTransactionID: &sourceID,
	})
	return err
}
