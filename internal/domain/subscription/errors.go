package subscription

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrAlreadySubscribed    = errors.New("user already has an active subscription")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrPlanUnavailable      = errors.New("subscription plan is not available")
	ErrInvalidBillingPeriod = errors.New("billing period must be monthly or yearly")
)
