package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the admin router. Callers mount it behind auth plus the
// admin role check.
func (h *Handler) Routes(authMiddleware, adminOnly func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)
	r.Use(adminOnly)

	r.Get("/dashboard", h.Dashboard)
	r.Get("/audit-logs", h.ListAuditLogs)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/{id}/credits", h.GrantCredits)
		r.Get("/{id}/buckets", h.ListUserBuckets)
		r.Put("/{id}/status", h.SetUserStatus)
	})

	return r
}
