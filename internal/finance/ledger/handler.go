package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/clubledger/clubledger/internal/platform/httpx"
	"github.com/clubledger/clubledger/internal/shared"
)

// Handler exposes the ledger over JSON.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	authz    shared.Authorizer
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, authz shared.Authorizer) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		authz:    authz,
		validate: validator.New(),
	}
}

type legRequest struct {
	Token          string `json:"token"`
	Step           *int   `json:"step"`
	Account        string `json:"account" validate:"required"`
	Date           string `json:"date" validate:"required"`
	DocumentNumber string `json:"document_number"`
	Text           string `json:"text" validate:"required"`
	Debit          string `json:"debit"`
	Credit         string `json:"credit"`
	CostCenter     string `json:"cost_center"`
	CostObject     string `json:"cost_object"`
}

type legResponse struct {
	Token       string          `json:"token"`
	State       DraftState      `json:"state"`
	DebitTotal  string          `json:"debit_total"`
	CreditTotal string          `json:"credit_total"`
	Suggestion  *suggestionBody `json:"suggestion,omitempty"`
	Receipt     *receiptBody    `json:"receipt,omitempty"`
}

type suggestionBody struct {
	Date           string `json:"date"`
	Text           string `json:"text"`
	DocumentNumber string `json:"document_number"`
	Debit          string `json:"debit,omitempty"`
	Credit         string `json:"credit,omitempty"`
}

type receiptBody struct {
	DocumentNumber string     `json:"document_number"`
	InternalNumber int64      `json:"internal_number"`
	Lines          []lineBody `json:"lines"`
}

type lineBody struct {
	ID             int64   `json:"id"`
	Account        string  `json:"account"`
	Date           string  `json:"date"`
	DocumentNumber string  `json:"document_number"`
	Text           string  `json:"text"`
	Debit          *string `json:"debit"`
	Credit         *string `json:"credit"`
	CostCenter     *string `json:"cost_center"`
	CostObject     *string `json:"cost_object"`
	InternalNumber int64   `json:"internal_number"`
	Reset          bool    `json:"reset"`
	ClearingNumber *int64  `json:"clearing_number"`
	AccountingYear int     `json:"accounting_year"`
}

func toLineBody(t Transaction) lineBody {
	body := lineBody{
		ID:             t.ID,
		Account:        t.AccountNumber,
		Date:           t.Date.Format(draftDateLayout),
		DocumentNumber: t.DocumentNumber,
		Text:           t.Text,
		CostCenter:     t.CostCenter,
		CostObject:     t.CostObject,
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

func toReceiptBody(r Receipt) *receiptBody {
	body := &receiptBody{DocumentNumber: r.DocumentNumber, InternalNumber: r.InternalNumber}
	for _, line := range r.Lines {
		body.Lines = append(body.Lines, toLineBody(line))
	}
	return body
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceView) {
		return
	}
	lines, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, "list ledger", err)
		return
	}
	out := make([]lineBody, 0, len(lines))
	for _, line := range lines {
		out = append(out, toLineBody(line))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceView) {
		return
	}
	internal, err := strconv.ParseInt(chi.URLParam(r, "internalNumber"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid internal number")
		return
	}
	receipt, err := h.service.GetReceipt(r.Context(), internal)
	if err != nil {
		h.fail(w, "get receipt", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toReceiptBody(receipt))
}

func (h *Handler) AddLeg(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinancePost) {
		return
	}
	var req legRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in, err := legInputFromRequest(req)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	step := -1
	if req.Step != nil {
		step = *req.Step
	}
	result, err := h.service.AddLeg(r.Context(), req.Token, step, in)
	if err != nil {
		h.fail(w, "add leg", err)
		return
	}
	resp := legResponse{
		Token:       result.Token,
		State:       result.State,
		DebitTotal:  result.DebitTotal.String(),
		CreditTotal: result.CreditTotal.String(),
	}
	if result.Suggestion != nil {
		resp.Suggestion = &suggestionBody{
			Date:           result.Suggestion.Date.Format(draftDateLayout),
			Text:           result.Suggestion.Text,
			DocumentNumber: result.Suggestion.DocumentNumber,
		}
		if !result.Suggestion.Debit.IsZero() {
			resp.Suggestion.Debit = result.Suggestion.Debit.String()
		}
		if !result.Suggestion.Credit.IsZero() {
			resp.Suggestion.Credit = result.Suggestion.Credit.String()
		}
	}
	if result.Receipt != nil {
		resp.Receipt = toReceiptBody(*result.Receipt)
	}
	status := http.StatusOK
	if result.State == DraftStateCommitted {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, resp)
}

func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinancePost) {
		return
	}
	if err := h.service.Abandon(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.fail(w, "abandon draft", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceReset) {
		return
	}
	internal, err := strconv.ParseInt(chi.URLParam(r, "internalNumber"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid internal number")
		return
	}
	mirror, err := h.service.Reset(r.Context(), internal, h.actorID(r))
	if err != nil {
		h.fail(w, "reset receipt", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toReceiptBody(mirror))
}

func (h *Handler) ResetAndReenter(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceReset) {
		return
	}
	internal, err := strconv.ParseInt(chi.URLParam(r, "internalNumber"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid internal number")
		return
	}
	mirror, token, err := h.service.ResetAndReenter(r.Context(), internal, h.actorID(r))
	if err != nil {
		h.fail(w, "reset and reenter", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"mirror": toReceiptBody(mirror),
		"token":  token,
	})
}

type clearRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceClear) {
		return
	}
	var req clearRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	number, err := h.service.Clear(r.Context(), req.IDs, h.actorID(r))
	if err != nil {
		h.fail(w, "clear lines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"clearing_number": number})
}

func (h *Handler) ResetClearing(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceClear) {
		return
	}
	number, err := strconv.ParseInt(chi.URLParam(r, "clearingNumber"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid clearing number")
		return
	}
	if err := h.service.ResetClearing(r.Context(), number, h.actorID(r)); err != nil {
		h.fail(w, "reset clearing", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func legInputFromRequest(req legRequest) (LegInput, error) {
	date, err := time.Parse(draftDateLayout, req.Date)
	if err != nil {
		return LegInput{}, errors.New("date must be dd.mm.yyyy")
	}
	in := LegInput{
		AccountNumber:  req.Account,
		Date:           date,
		DocumentNumber: req.DocumentNumber,
		Text:           req.Text,
		CostCenter:     req.CostCenter,
		CostObject:     req.CostObject,
	}
	if req.Debit != "" {
		if in.Debit, err = decimal.NewFromString(req.Debit); err != nil {
			return LegInput{}, errors.New("debit must be a decimal string")
		}
	}
	if req.Credit != "" {
		if in.Credit, err = decimal.NewFromString(req.Credit); err != nil {
			return LegInput{}, errors.New("credit must be a decimal string")
		}
	}
	return in, nil
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

func (h *Handler) actorID(r *http.Request) int64 {
	actor, _ := shared.ActorFromContext(r.Context())
	return actor.ID
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrReceiptNotFound), errors.Is(err, ErrLineNotFound),
		errors.Is(err, ErrClearingNotFound), errors.Is(err, ErrDraftNotFound),
		errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrCostCenterNotFound),
		errors.Is(err, ErrCostObjectNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyReset), errors.Is(err, ErrAlreadyCleared):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
