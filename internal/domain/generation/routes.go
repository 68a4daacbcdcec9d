package generation

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the generation router. Everything requires auth, including
// the WebSocket endpoint.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/ws", h.WebSocket)
		r.Get("/{id}", h.Get)
	})

	return r
}
