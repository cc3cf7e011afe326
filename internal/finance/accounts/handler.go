package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clubledger/clubledger/internal/platform/httpx"
	"github.com/clubledger/clubledger/internal/shared"
)

// Handler exposes the chart of accounts and both cost dimensions over JSON.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	authz    shared.Authorizer
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, authz shared.Authorizer) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		authz:    authz,
		validate: validator.New(),
	}
}

type accountRequest struct {
	Number string `json:"number" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Type   string `json:"type" validate:"required"`
}

type accountBody struct {
	ID        int64  `json:"id"`
	Number    string `json:"number"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toAccountBody(a Account) accountBody {
	return accountBody{
		ID:        a.ID,
		Number:    a.Number,
		Name:      a.Name,
		Type:      string(a.Type),
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
}

type dimensionRequest struct {
	Number      string `json:"number" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type dimensionBody struct {
	ID          int64  `json:"id"`
	Number      string `json:"number"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceView) {
		return
	}
	accounts, err := h.service.ListAccounts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, "list accounts", err)
		return
	}
	out := make([]accountBody, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountBody(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceView) {
		return
	}
	account, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.fail(w, "get account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountBody(account))
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinancePost) {
		return
	}
	req, ok := h.decodeAccount(w, r)
	if !ok {
		return
	}
	account, err := h.service.CreateAccount(r.Context(), AccountInput{
		Number: req.Number,
		Name:   req.Name,
		Type:   AccountType(req.Type),
	})
	if err != nil {
		h.fail(w, "create account", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountBody(account))
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinancePost) {
		return
	}
	req, ok := h.decodeAccount(w, r)
	if !ok {
		return
	}
	account, err := h.service.UpdateAccount(r.Context(), chi.URLParam(r, "number"), AccountInput{
		Number: chi.URLParam(r, "number"),
		Name:   req.Name,
		Type:   AccountType(req.Type),
	})
	if err != nil {
		h.fail(w, "update account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountBody(account))
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinancePost) {
		return
	}
	if err := h.service.DeleteAccount(r.Context(), chi.URLParam(r, "number")); err != nil {
		h.fail(w, "delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeAccount(w http.ResponseWriter, r *http.Request) (accountRequest, bool) {
	var req accountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	return req, true
}

// The cost center and cost object endpoints share the dimension shape; the
// dim helper pair keeps the eight handlers from quadrupling.

func (h *Handler) ListCostCenters(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceView) {
		return
	}
	centers, err := h.service.ListCostCenters(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, "list cost centers", err)
		return
	}
	out := make([]dimensionBody, 0, len(centers))
	for _, c := range centers {
		out = append(out, dimensionBody{c.ID, c.Number, c.Name, c.Description,
			c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"cost_centers": out})
}

func (h *Handler) GetCostCenter(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceView) {
		return
	}
	c, err := h.service.GetCostCenter(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.fail(w, "get cost center", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dimensionBody{c.ID, c.Number, c.Name, c.Description,
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339)})
}

func (h *Handler) CreateCostCenter(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinancePost) {
		return
	}
	req, ok := h.decodeDimension(w, r)
	if !ok {
		return
	}
	c, err := h.service.CreateCostCenter(r.Context(), DimensionInput(req))
	if err != nil {
		h.fail(w, "create cost center", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dimensionBody{c.ID, c.Number, c.Name, c.Description,
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339)})
}

func (h *Handler) UpdateCostCenter(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinancePost) {
		return
	}
	req, ok := h.decodeDimension(w, r)
	if !ok {
		return
	}
	in := DimensionInput(req)
	in.Number = chi.URLParam(r, "number")
	c, err := h.service.UpdateCostCenter(r.Context(), in.Number, in)
	if err != nil {
		h.fail(w, "update cost center", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dimensionBody{c.ID, c.Number, c.Name, c.Description,
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339)})
}

func (h *Handler) DeleteCostCenter(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinancePost) {
		return
	}
	if err := h.service.DeleteCostCenter(r.Context(), chi.URLParam(r, "number")); err != nil {
		h.fail(w, "delete cost center", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCostObjects(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceView) {
		return
	}
	objects, err := h.service.ListCostObjects(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, "list cost objects", err)
		return
	}
	out := make([]dimensionBody, 0, len(objects))
	for _, c := range objects {
		out = append(out, dimensionBody{c.ID, c.Number, c.Name, c.Description,
			c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"cost_objects": out})
}

func (h *Handler) GetCostObject(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinanceView) {
		return
	}
	c, err := h.service.GetCostObject(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.fail(w, "get cost object", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dimensionBody{c.ID, c.Number, c.Name, c.Description,
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339)})
}

func (h *Handler) CreateCostObject(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinancePost) {
		return
	}
	req, ok := h.decodeDimension(w, r)
	if !ok {
		return
	}
	c, err := h.service.CreateCostObject(r.Context(), DimensionInput(req))
	if err != nil {
		h.fail(w, "create cost object", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dimensionBody{c.ID, c.Number, c.Name, c.Description,
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339)})
}

func (h *Handler) UpdateCostObject(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinancePost) {
		return
	}
	req, ok := h.decodeDimension(w, r)
	if !ok {
		return
	}
	in := DimensionInput(req)
	in.Number = chi.URLParam(r, "number")
	c, err := h.service.UpdateCostObject(r.Context(), in.Number, in)
	if err != nil {
		h.fail(w, "update cost object", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dimensionBody{c.ID, c.Number, c.Name, c.Description,
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339)})
}

func (h *Handler) DeleteCostObject(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapFinancePost) {
		return
	}
	if err := h.service.DeleteCostObject(r.Context(), chi.URLParam(r, "number")); err != nil {
		h.fail(w, "delete cost object", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeDimension(w http.ResponseWriter, r *http.Request) (dimensionRequest, bool) {
	var req dimensionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	return req, true
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
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInUse), errors.Is(err, ErrTypeImmutable):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
