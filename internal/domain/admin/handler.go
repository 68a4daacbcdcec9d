package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenai/lumen-api/internal/domain/user"
	"github.com/lumenai/lumen-api/internal/middleware"
	"github.com/lumenai/lumen-api/internal/pkg/response"
	"github.com/lumenai/lumen-api/internal/pkg/validator"
)

// GrantCreditsRequest for POST /admin/users/{id}/credits
type GrantCreditsRequest struct {
	Amount        int    `json:"amount" validate:"required,min=1,max=1000000"`
	ExpiresInDays *int   `json:"expires_in_days,omitempty" validate:"omitempty,min=1,max=3650"`
	Reason        string `json:"reason" validate:"required,min=3,max=500"`
}

// SetStatusRequest for PUT /admin/users/{id}/status
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended"`
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// Handler handles admin HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates admin handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Dashboard handles GET /admin/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load dashboard stats")
		response.InternalError(w)
		return
	}
	response.OK(w, stats)
}

// ListUsers handles GET /admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, total, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{
		"users": users,
		"total": total,
	})
}

// GrantCredits handles POST /admin/users/{id}/credits
func (h *Handler) GrantCredits(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req GrantCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	adminID := middleware.GetUserID(r.Context())

	balance, err := h.service.GrantCredits(r.Context(), adminID, userID, req.Amount, req.ExpiresInDays, req.Reason)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("admin grant failed")
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{
		"user_id":        userID,
		"amount_granted": req.Amount,
		"new_balance":    balance,
	})
}

// ListUserBuckets handles GET /admin/users/{id}/buckets
func (h *Handler) ListUserBuckets(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	buckets, err := h.service.ListUserBuckets(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list buckets")
		response.InternalError(w)
		return
	}

	response.OK(w, buckets)
}

// SetUserStatus handles PUT /admin/users/{id}/status
func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	adminID := middleware.GetUserID(r.Context())

	if err := h.service.SetUserStatus(r.Context(), adminID, userID, user.Status(req.Status), req.Reason); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to update user status")
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}

// ListAuditLogs handles GET /admin/audit-logs
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	logs, err := h.service.ListAuditLogs(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list audit logs")
		response.InternalError(w)
		return
	}

	response.OK(w, logs)
}
