package plan

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the public catalog router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/packs", h.ListPacks)
	r.Get("/plans", h.ListPlans)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/promo/redeem", h.RedeemPromo)
	})

	return r
}

// AdminRoutes returns the admin catalog router. Callers mount it behind
// auth + admin middleware.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/packs", h.CreatePack)
	r.Put("/packs/{id}", h.UpdatePack)
	r.Post("/plans", h.CreatePlan)
	r.Post("/promo-codes", h.CreatePromo)
	r.Get("/promo-codes", h.ListPromos)

	return r
}
