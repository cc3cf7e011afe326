package reporting

import "github.com/go-chi/chi/v5"

// MountRoutes attaches the export and rendering endpoints.
func MountRoutes(r chi.Router, h *Handler) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/exports/{kind}", h.Export)
		r.Get("/exports/closures/{year}", h.ExportClosure)
		r.Get("/ledger.pdf", h.RenderLedger)
	})
}
