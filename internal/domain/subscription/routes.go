package subscription

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns subscription router, all endpoints behind auth
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)
	r.Post("/subscribe", h.Subscribe)
	r.Get("/current", h.Current)
	r.Post("/cancel", h.Cancel)

	return r
}
