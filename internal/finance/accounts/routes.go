package accounts

import "github.com/go-chi/chi/v5"

// MountRoutes attaches the master data endpoints.
func MountRoutes(r chi.Router, h *Handler) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.ListAccounts)
		r.Post("/", h.CreateAccount)
		r.Get("/{number}", h.GetAccount)
		r.Put("/{number}", h.UpdateAccount)
		r.Delete("/{number}", h.DeleteAccount)
	})
	r.Route("/cost-centers", func(r chi.Router) {
		r.Get("/", h.ListCostCenters)
		r.Post("/", h.CreateCostCenter)
		r.Get("/{number}", h.GetCostCenter)
		r.Put("/{number}", h.UpdateCostCenter)
		r.Delete("/{number}", h.DeleteCostCenter)
	})
	r.Route("/cost-objects", func(r chi.Router) {
		r.Get("/", h.ListCostObjects)
		r.Post("/", h.CreateCostObject)
		r.Get("/{number}", h.GetCostObject)
		r.Put("/{number}", h.UpdateCostObject)
		r.Delete("/{number}", h.DeleteCostObject)
	})
}
