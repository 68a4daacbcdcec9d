package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenai/lumen-api/internal/domain/plan"
	"github.com/lumenai/lumen-api/internal/middleware"
	"github.com/lumenai/lumen-api/internal/pkg/response"
	"github.com/lumenai/lumen-api/internal/pkg/validator"
)

// CheckoutPackRequest for POST /payments/checkout
type CheckoutPackRequest struct {
	PackID string `json:"pack_id" validate:"required,uuid"`
}

// Handler handles payment HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates payment handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CheckoutPack handles POST /payments/checkout
func (h *Handler) CheckoutPack(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CheckoutPackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	packID, err := uuid.Parse(req.PackID)
	if err != nil {
		response.BadRequest(w, "Invalid pack ID")
		return
	}

	result, err := h.service.CheckoutPack(r.Context(), userID, packID)
	if err != nil {
		switch {
		case errors.Is(err, plan.ErrPackNotFound):
			response.NotFound(w, "Credit pack not found")
		case errors.Is(err, ErrPackUnavailable):
			response.BadRequest(w, "Credit pack is not available for purchase")
		default:
			log.Error().Err(err).Str("user_id", userID.String()).Msg("checkout failed")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// List handles GET /payments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	payments, err := h.service.ListUserPayments(r.Context(), userID, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list payments")
		response.InternalError(w)
		return
	}

	response.OK(w, payments)
}

// Callback handles POST /payments/payline/callback. PayLine expects a plain
// 200 body on success and retries on anything else.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.service.HandleCallback(r.Context(), r.PostForm); err != nil {
		switch {
		case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrAmountMismatch):
			http.Error(w, "bad signature", http.StatusBadRequest)
		case errors.Is(err, ErrPaymentNotFound):
			http.Error(w, "unknown order", http.StatusNotFound)
		default:
			log.Error().Err(err).Msg("payline callback processing failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
