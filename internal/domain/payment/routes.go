package payment

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the payment router. The gateway callback stays public; the
// signature check is its authentication.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/payline/callback", h.Callback)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/checkout", h.CheckoutPack)
		r.Get("/", h.List)
	})

	return r
}
