package ledger

import "github.com/go-chi/chi/v5"

// MountRoutes attaches the ledger endpoints.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/", h.List)
	r.Post("/legs", h.AddLeg)
	r.Delete("/drafts/{token}", h.Abandon)
	r.Get("/{internalNumber}", h.GetReceipt)
	r.Post("/{internalNumber}/reset", h.Reset)
	r.Post("/{internalNumber}/reset-reenter", h.ResetAndReenter)
	r.Post("/clearing", h.Clear)
	r.Delete("/clearing/{clearingNumber}", h.ResetClearing)
}
