package plan

import "errors"

var (
	ErrPackNotFound         = errors.New("credit pack not found")
	ErrPlanNotFound         = errors.New("subscription plan not found")
	ErrPromoNotFound        = errors.New("promo code not found")
	ErrPromoInactive        = errors.New("promo code is inactive")
	ErrPromoNotStarted      = errors.New("promo code is not valid yet")
	ErrPromoExpired         = errors.New("promo code has expired")
	ErrPromoExhausted       = errors.New("promo code redemption limit reached")
	ErrPromoAlreadyRedeemed = errors.New("promo code already redeemed by this user")
)
