package jobs

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clubledger/clubledger/internal/platform/httpx"
	"github.com/clubledger/clubledger/internal/shared"
)

// TriggerHandler enqueues background runs over HTTP instead of executing
// them inline.
type TriggerHandler struct {
	client *Client
	logger *slog.Logger
	authz  shared.Authorizer
}

// NewTriggerHandler constructs a TriggerHandler.
func NewTriggerHandler(client *Client, logger *slog.Logger, authz shared.Authorizer) *TriggerHandler {
	return &TriggerHandler{client: client, logger: logger, authz: authz}
}

// MountTriggerRoutes attaches the enqueue endpoints.
func MountTriggerRoutes(r chi.Router, h *TriggerHandler) {
	r.Post("/assess-dues", h.AssessDues)
	r.Post("/closures/{year}", h.AnnualClosure)
}

func (h *TriggerHandler) AssessDues(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.allowed(w, r, shared.CapTasksRun)
	if !ok {
		return
	}
	info, err := h.client.EnqueueAssessDues(r.Context(), AssessDuesPayload{
		ActorID:      actor.ID,
		ScheduledFor: time.Now(),
	})
	if err != nil {
		h.logger.Error("enqueue assess dues", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"task_id": info.ID, "queue": info.Queue})
}

func (h *TriggerHandler) AnnualClosure(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.allowed(w, r, shared.CapFinanceClose)
	if !ok {
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid year")
		return
	}
	info, err := h.client.EnqueueAnnualClosure(r.Context(), AnnualClosurePayload{
		Year:    year,
		ActorID: actor.ID,
	})
	if err != nil {
		h.logger.Error("enqueue annual closure", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"task_id": info.ID, "queue": info.Queue})
}

func (h *TriggerHandler) allowed(w http.ResponseWriter, r *http.Request, capability string) (shared.Actor, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return shared.Actor{}, false
	}
	if err := h.authz.Allow(r.Context(), actor.ID, capability); err != nil {
		if errors.Is(err, shared.ErrForbidden) {
			httpx.RespondError(w, httpx.ErrForbidden)
		} else {
			h.logger.Error("authorize", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return shared.Actor{}, false
	}
	return actor, true
}
