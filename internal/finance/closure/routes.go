package closure

import "github.com/go-chi/chi/v5"

// MountRoutes attaches the closure endpoints.
func MountRoutes(r chi.Router, h *Handler) {
	r.Route("/closures", func(r chi.Router) {
		r.Get("/", h.Balances)
		r.Post("/{year}", h.Run)
		r.Get("/{year}/transactions", h.Transactions)
	})
}
