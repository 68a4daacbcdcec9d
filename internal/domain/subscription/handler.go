package subscription

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/lumenai/lumen-api/internal/domain/plan"
	"github.com/lumenai/lumen-api/internal/middleware"
	"github.com/lumenai/lumen-api/internal/pkg/response"
	"github.com/lumenai/lumen-api/internal/pkg/validator"
)

// SubscribeRequest for POST /subscriptions/subscribe
type SubscribeRequest struct {
	PlanID        string `json:"plan_id" validate:"required,min=2,max=50"`
	BillingPeriod string `json:"billing_period" validate:"required,billing_period"`
}

// Handler handles subscription HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates subscription handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Subscribe handles POST /subscriptions/subscribe
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Subscribe(r.Context(), userID, req.PlanID, plan.BillingPeriod(req.BillingPeriod))
	if err != nil {
		switch {
		case errors.Is(err, plan.ErrPlanNotFound):
			response.NotFound(w, "Subscription plan not found")
		case errors.Is(err, ErrPlanUnavailable):
			response.BadRequest(w, "Subscription plan is not available")
		case errors.Is(err, ErrInvalidBillingPeriod):
			response.BadRequest(w, "Billing period not offered for this plan")
		case errors.Is(err, ErrAlreadySubscribed):
			response.Conflict(w, "An active subscription already exists")
		default:
			log.Error().Err(err).Str("user_id", userID.String()).Msg("subscribe failed")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// Current handles GET /subscriptions/current
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sub, err := h.service.Current(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load subscription")
		response.InternalError(w)
		return
	}
	if sub == nil {
		response.NotFound(w, "No subscription")
		return
	}

	response.OK(w, sub)
}

// Cancel handles POST /subscriptions/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.service.Cancel(r.Context(), userID); err != nil {
		if errors.Is(err, ErrNoActiveSubscription) {
			response.NotFound(w, "No active subscription")
			return
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("cancel failed")
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}
