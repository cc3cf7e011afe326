package reporting

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/clubledger/clubledger/internal/finance/closure"
	"github.com/clubledger/clubledger/internal/platform/httpx"
	"github.com/clubledger/clubledger/internal/shared"
)

// Handler exposes the JSON exports and the rendered ledger report.
type Handler struct {
	exporter *Exporter
	renderer *RendererClient
	logger   *slog.Logger
	authz    shared.Authorizer
	year     func() int
}

// NewHandler constructs a Handler. year supplies the active accounting year
// for the rendered report header.
func NewHandler(logger *slog.Logger, exporter *Exporter, renderer *RendererClient, authz shared.Authorizer, year func() int) *Handler {
	if year == nil {
		year = func() int { return time.Now().Year() }
	}
	return &Handler{exporter: exporter, renderer: renderer, logger: logger, authz: authz, year: year}
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapReportsView) {
		return
	}
	kind := chi.URLParam(r, "kind")
	build, ok := h.export(kind)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown export "+kind)
		return
	}
	data, err := build(r.Context())
	if err != nil {
		h.fail(w, "export "+kind, err)
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

// ExportClosure serves a closed year's snapshot.
func (h *Handler) ExportClosure(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapReportsView) {
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid year")
		return
	}
	data, err := h.exporter.ClosureTransactions(r.Context(), year)
	if err != nil {
		h.fail(w, "export closure", err)
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

// RenderLedger renders the active year's journal as a PDF through the
// external renderer.
func (h *Handler) RenderLedger(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapReportsView) {
		return
	}
	export, err := h.exporter.Transactions(r.Context())
	if err != nil {
		h.fail(w, "render ledger", err)
		return
	}
	html, err := LedgerReportHTML(export, h.year(), language.German)
	if err != nil {
		h.fail(w, "render ledger", err)
		return
	}
	pdf, err := h.renderer.RenderHTML(r.Context(), html)
	if err != nil {
		h.fail(w, "render ledger", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) export(kind string) (func(context.Context) (map[string]any, error), bool) {
	switch kind {
	case "accounts":
		return h.exporter.Accounts, true
	case "cost-centers":
		return h.exporter.CostCenters, true
	case "cost-objects":
		return h.exporter.CostObjects, true
	case "transactions":
		return h.exporter.Transactions, true
	case "closure-balances":
		return h.exporter.ClosureBalances, true
	case "members":
		return h.exporter.Members, true
	case "subscriptions":
		return h.exporter.Subscriptions, true
	}
	return nil, false
}

func (h *Handler) allowed(w http.ResponseWriter, r *http.Request, capability string) bool {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return false
	}
	if err := h.authz.Allow(r.Context(), actor.ID, capability); err != nil {
		if errors.Is(err, shared.ErrForbidden) {
			httpx.RespondError(w, httpx.ErrForbidden)
		} else {
			h.fail(w, "authorize", err)
		}
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, closure.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
