package plan

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenai/lumen-api/internal/middleware"
	"github.com/lumenai/lumen-api/internal/pkg/response"
	"github.com/lumenai/lumen-api/internal/pkg/validator"
)

// Handler handles catalog HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates catalog handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListPacks handles GET /packs
func (h *Handler) ListPacks(w http.ResponseWriter, r *http.Request) {
	packs, err := h.service.ListPacks(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list credit packs")
		response.InternalError(w)
		return
	}
	response.OK(w, packs)
}

// ListPlans handles GET /plans
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list subscription plans")
		response.InternalError(w)
		return
	}
	response.OK(w, plans)
}

// RedeemPromo handles POST /promo/redeem
func (h *Handler) RedeemPromo(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req RedeemPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.RedeemPromo(r.Context(), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, ErrPromoNotFound):
			response.NotFound(w, "Promo code not found")
		case errors.Is(err, ErrPromoAlreadyRedeemed):
			response.Conflict(w, "Promo code already redeemed")
		case errors.Is(err, ErrPromoInactive),
			errors.Is(err, ErrPromoNotStarted),
			errors.Is(err, ErrPromoExpired),
			errors.Is(err, ErrPromoExhausted):
			response.BadRequest(w, err.Error())
		default:
			log.Error().Err(err).Str("user_id", userID.String()).Msg("promo redemption failed")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// CreatePack handles POST /admin/packs
func (h *Handler) CreatePack(w http.ResponseWriter, r *http.Request) {
	var req CreatePackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	pack, err := h.service.CreatePack(r.Context(), &req)
	if err != nil {
		log.Error().Err(err).Msg("failed to create credit pack")
		response.InternalError(w)
		return
	}
	response.Created(w, pack)
}

// UpdatePack handles PUT /admin/packs/{id}
func (h *Handler) UpdatePack(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid pack ID")
		return
	}

	var req UpdatePackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	pack, err := h.service.UpdatePack(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, ErrPackNotFound) {
			response.NotFound(w, "Credit pack not found")
			return
		}
		log.Error().Err(err).Str("pack_id", id.String()).Msg("failed to update credit pack")
		response.InternalError(w)
		return
	}
	response.OK(w, pack)
}

// CreatePlan handles POST /admin/plans
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	p, err := h.service.CreatePlan(r.Context(), &req)
	if err != nil {
		log.Error().Err(err).Msg("failed to create subscription plan")
		response.InternalError(w)
		return
	}
	response.Created(w, p)
}

// CreatePromo handles POST /admin/promo-codes
func (h *Handler) CreatePromo(w http.ResponseWriter, r *http.Request) {
	var req CreatePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	p, err := h.service.CreatePromo(r.Context(), &req)
	if err != nil {
		log.Error().Err(err).Msg("failed to create promo code")
		response.InternalError(w)
		return
	}
	response.Created(w, p)
}

// ListPromos handles GET /admin/promo-codes
func (h *Handler) ListPromos(w http.ResponseWriter, r *http.Request) {
	promos, err := h.service.ListPromos(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list promo codes")
		response.InternalError(w)
		return
	}
	response.OK(w, promos)
}
