package ledger

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/lumenai/lumen-api/internal/middleware"
	"github.com/lumenai/lumen-api/internal/pkg/response"
)

// Handler exposes a user's own balance and bucket history
type Handler struct {
	service Service
}

// NewHandler creates ledger handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Balance handles GET /credits/balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to get balance")
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]int{"balance": balance})
}

// Buckets handles GET /credits/buckets
func (h *Handler) Buckets(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	buckets, err := h.service.ListBuckets(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list buckets")
		response.InternalError(w)
		return
	}

	response.OK(w, buckets)
}
