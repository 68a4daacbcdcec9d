package plan

// RedeemPromoRequest for POST /promo/redeem
type RedeemPromoRequest struct {
	Code string `json:"code" validate:"required,min=3,max=64"`
}

// RedeemPromoResponse returned after a successful redemption
type RedeemPromoResponse struct {
	Credits  int    `json:"credits"`
	BucketID string `json:"bucket_id"`
}

// CreatePackRequest for admin pack creation
type CreatePackRequest struct {
	Name          string  `json:"name" validate:"required,min=2,max=100"`
	Description   string  `json:"description" validate:"max=500"`
	Credits       int     `json:"credits" validate:"required,gt=0"`
	Price         float64 `json:"price" validate:"required,gt=0"`
	ExpiresInDays *int    `json:"expires_in_days" validate:"omitempty,gt=0"`
	SortOrder     int     `json:"sort_order"`
}

// UpdatePackRequest for admin pack updates
type UpdatePackRequest struct {
	Name          string  `json:"name" validate:"required,min=2,max=100"`
	Description   string  `json:"description" validate:"max=500"`
	Credits       int     `json:"credits" validate:"required,gt=0"`
	Price         float64 `json:"price" validate:"required,gt=0"`
	ExpiresInDays *int    `json:"expires_in_days" validate:"omitempty,gt=0"`
	IsActive      bool    `json:"is_active"`
	SortOrder     int     `json:"sort_order"`
}

// CreatePlanRequest for admin plan creation
type CreatePlanRequest struct {
	ID               string   `json:"id" validate:"required,min=2,max=50,alphanum"`
	Name             string   `json:"name" validate:"required,min=2,max=100"`
	Description      string   `json:"description" validate:"max=500"`
	PriceMonthly     float64  `json:"price_monthly" validate:"required,gt=0"`
	PriceYearly      *float64 `json:"price_yearly" validate:"omitempty,gt=0"`
	CreditsPerPeriod int      `json:"credits_per_period" validate:"required,gt=0"`
}

// CreatePromoRequest for admin promo code creation
type CreatePromoRequest struct {
	Code           string `json:"code" validate:"required,min=3,max=64"`
	Credits        int    `json:"credits" validate:"required,gt=0"`
	ExpiresInDays  *int   `json:"expires_in_days" validate:"omitempty,gt=0"`
	ValidUntil     string `json:"valid_until" validate:"omitempty"`
	MaxRedemptions *int   `json:"max_redemptions" validate:"omitempty,gt=0"`
}
