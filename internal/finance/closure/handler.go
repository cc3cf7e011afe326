package closure

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

// Handler exposes annual closures over JSON.
type Handler struct {
	service *Service
	logger  *slog.Logger
	authz   shared.Authorizer
}

func NewHandler(logger *slog.Logger, service *Service, authz shared.Authorizer) *Handler {
	return &Handler{service: service, logger: logger, authz: authz}
}

type balanceBody struct {
	Year        int    `json:"year"`
	Claims      string `json:"claims"`
	Liabilities string `json:"liabilities"`
	CreatedAt   string `json:"created_at"`
}

func toBalanceBody(b ClosureBalance) balanceBody {
	return balanceBody{
		Year:        b.Year,
		Claims:      b.Claims.String(),
		Liabilities: b.Liabilities.String(),
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
	}
}

type closureLineBody struct {
	ID             int64   `json:"id"`
	Account        string  `json:"account"`
	AccountName    string  `json:"account_name"`
	Date           string  `json:"date"`
	DocumentNumber string  `json:"document_number"`
	Text           string  `json:"text"`
	Debit          *string `json:"debit"`
	Credit         *string `json:"credit"`
	CostCenter     *string `json:"cost_center"`
	CostCenterName *string `json:"cost_center_name"`
	CostObject     *string `json:"cost_object"`
	CostObjectName *string `json:"cost_object_name"`
	InternalNumber int64   `json:"internal_number"`
	Reset          bool    `json:"reset"`
	ClearingNumber *int64  `json:"clearing_number"`
	AccountingYear int     `json:"accounting_year"`
}

func toClosureLineBody(t ClosureTransaction) closureLineBody {
	body := closureLineBody{
		ID:             t.ID,
		Account:        t.AccountNumber,
		AccountName:    t.AccountName,
		Date:           t.Date.Format("02.01.2006"),
		DocumentNumber: t.DocumentNumber,
		Text:           t.Text,
		CostCenter:     t.CostCenter,
		CostCenterName: t.CostCenterName,
		CostObject:     t.CostObject,
		CostObjectName: t.CostObjectName,
		InternalNumber: t.InternalNumber,
		Reset:          t.Reset,
		ClearingNumber: t.ClearingNumber,
		AccountingYear: t.AccountingYear,
	}
	if !t.Debit.IsZero() {
		v := t.Debit.String()
		body.Debit = &v
	}
	if !t.Credit.IsZero() {
		v := t.Credit.String()
		body.Credit = &v
	}
	return body
}

func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceClose) {
		return
	}
	year, ok := h.year(w, r)
	if !ok {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	result, err := h.service.Run(r.Context(), year, actor.ID)
	if err != nil {
		h.fail(w, "run closure", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"year":    result.Year,
		"copied":  result.Copied,
		"balance": toBalanceBody(result.Balance),
	})
}

func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceView) {
		return
	}
	balances, err := h.service.Balances(r.Context())
	if err != nil {
		h.fail(w, "list balances", err)
		return
	}
	out := make([]balanceBody, 0, len(balances))
	for _, b := range balances {
		out = append(out, toBalanceBody(b))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"balances": out})
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceView) {
		return
	}
	year, ok := h.year(w, r)
	if !ok {
		return
	}
	lines, err := h.service.Transactions(r.Context(), year)
	if err != nil {
		h.fail(w, "list closure transactions", err)
		return
	}
	out := make([]closureLineBody, 0, len(lines))
	for _, line := range lines {
		out = append(out, toClosureLineBody(line))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (h *Handler) year(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid year")
		return 0, false
	}
	return year, true
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
	case errors.Is(err, ErrAlreadyClosed):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
