package ledger

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the credits router, all endpoints require auth
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/balance", h.Balance)
		r.Get("/buckets", h.Buckets)
	})

	return r
}
