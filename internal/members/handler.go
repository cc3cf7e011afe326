package members

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

const dateLayout = "2006-01-02"

// Handler exposes members, subscriptions and dues assessment over JSON.
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

type memberRequest struct {
	Salutation       string `json:"salutation" validate:"required"`
	FirstName        string `json:"first_name" validate:"required"`
	LastName         string `json:"last_name" validate:"required"`
	Street           string `json:"street"`
	Zipcode          string `json:"zipcode"`
	City             string `json:"city"`
	Birthday         string `json:"birthday"`
	Phone            string `json:"phone"`
	Mobile           string `json:"mobile"`
	Email            string `json:"email"`
	MembershipNumber string `json:"membership_number"`
	JoinedAt         string `json:"joined_at"`
	TerminatedAt     string `json:"terminated_at"`
	PaymentMethod    string `json:"payment_method" validate:"required"`
	IBAN             string `json:"iban"`
	BIC              string `json:"bic"`
	DebitMandateAt   string `json:"debit_mandate_at"`
	DebitReference   string `json:"debit_reference"`
	SubscriptionID   *int64 `json:"subscription_id"`
}

type memberBody struct {
	ID               int64   `json:"id"`
	Salutation       string  `json:"salutation"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	FullName         string  `json:"full_name"`
	Terminated       bool    `json:"terminated"`
	Street           string  `json:"street,omitempty"`
	Zipcode          string  `json:"zipcode,omitempty"`
	City             string  `json:"city,omitempty"`
	Birthday         *string `json:"birthday"`
	Phone            string  `json:"phone,omitempty"`
	Mobile           string  `json:"mobile,omitempty"`
	Email            string  `json:"email,omitempty"`
	MembershipNumber string  `json:"membership_number,omitempty"`
	JoinedAt         *string `json:"joined_at"`
	TerminatedAt     *string `json:"terminated_at"`
	PaymentMethod    string  `json:"payment_method"`
	IBAN             string  `json:"iban,omitempty"`
	BIC              string  `json:"bic,omitempty"`
	DebitMandateAt   *string `json:"debit_mandate_at"`
	DebitReference   string  `json:"debit_reference,omitempty"`
	SubscriptionID   *int64  `json:"subscription_id"`
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(dateLayout)
	return &v
}

func toMemberBody(m Member) memberBody {
	return memberBody{
		ID:               m.ID,
		Salutation:       string(m.Salutation),
		FirstName:        m.FirstName,
		LastName:         m.LastName,
		FullName:         m.FullName(),
		Terminated:       m.Terminated(),
		Street:           m.Street,
		Zipcode:          m.Zipcode,
		City:             m.City,
		Birthday:         formatDate(m.Birthday),
		Phone:            m.Phone,
		Mobile:           m.Mobile,
		Email:            m.Email,
		MembershipNumber: m.MembershipNumber,
		JoinedAt:         formatDate(m.JoinedAt),
		TerminatedAt:     formatDate(m.TerminatedAt),
		PaymentMethod:    string(m.PaymentMethod),
		IBAN:             m.IBAN,
		BIC:              m.BIC,
		DebitMandateAt:   formatDate(m.DebitMandateAt),
		DebitReference:   m.DebitReference,
		SubscriptionID:   m.SubscriptionID,
	}
}

type subscriptionRequest struct {
	Name             string `json:"name" validate:"required"`
	Amount           string `json:"amount" validate:"required"`
	PaymentFrequency string `json:"payment_frequency" validate:"required"`
}

type subscriptionBody struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Amount           string `json:"amount"`
	PaymentFrequency string `json:"payment_frequency"`
}

func toSubscriptionBody(s Subscription) subscriptionBody {
	return subscriptionBody{
		ID:               s.ID,
		Name:             s.Name,
		Amount:           s.Amount.String(),
		PaymentFrequency: string(s.PaymentFrequency),
	}
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapMembersView) {
		return
	}
	list, err := h.service.ListMembers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, "list members", err)
		return
	}
	out := make([]memberBody, 0, len(list))
	for _, m := range list {
		out = append(out, toMemberBody(m))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"members": out})
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapMembersView) {
		return
	}
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	m, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		h.fail(w, "get member", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toMemberBody(m))
}

func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapMembersEdit) {
		return
	}
	in, ok := h.decodeMember(w, r)
	if !ok {
		return
	}
	m, err := h.service.CreateMember(r.Context(), in)
	if err != nil {
		h.fail(w, "create member", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMemberBody(m))
}

func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapMembersEdit) {
		return
	}
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeMember(w, r)
	if !ok {
		return
	}
	m, err := h.service.UpdateMember(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update member", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toMemberBody(m))
}

func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapMembersEdit) {
		return
	}
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteMember(r.Context(), id); err != nil {
		h.fail(w, "delete member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapMembersView) {
		return
	}
	list, err := h.service.ListSubscriptions(r.Context())
	if err != nil {
		h.fail(w, "list subscriptions", err)
		return
	}
	out := make([]subscriptionBody, 0, len(list))
	for _, s := range list {
		out = append(out, toSubscriptionBody(s))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"subscriptions": out})
}

func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapMembersView) {
		return
	}
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	s, err := h.service.GetSubscription(r.Context(), id)
	if err != nil {
		h.fail(w, "get subscription", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSubscriptionBody(s))
}

func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapMembersEdit) {
		return
	}
	in, ok := h.decodeSubscription(w, r)
	if !ok {
		return
	}
	s, err := h.service.CreateSubscription(r.Context(), in)
	if err != nil {
		h.fail(w, "create subscription", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toSubscriptionBody(s))
}

func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapMembersEdit) {
		return
	}
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeSubscription(w, r)
	if !ok {
		return
	}
	s, err := h.service.UpdateSubscription(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update subscription", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSubscriptionBody(s))
}

func (h *Handler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapMembersEdit) {
		return
	}
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteSubscription(r.Context(), id); err != nil {
		h.fail(w, "delete subscription", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssessDues runs the dues assessment inline. The worker path enqueues the
// same operation through the task queue instead.
func (h *Handler) AssessDues(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, shared.CapTasksRun) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	result, err := h.service.AssessDues(r.Context(), actor.ID)
	if err != nil {
		h.fail(w, "assess dues", err)
		return
	}
	state := "Success"
	if len(result.Missed) > 0 {
		state = "Missed"
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"state":  state,
		"posted": result.Posted,
		"missed": result.Missed,
	})
}

func (h *Handler) decodeMember(w http.ResponseWriter, r *http.Request) (MemberInput, bool) {
	var req memberRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return MemberInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return MemberInput{}, false
	}
	in := MemberInput{
		Salutation:       Salutation(req.Salutation),
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Street:           req.Street,
		Zipcode:          req.Zipcode,
		City:             req.City,
		Phone:            req.Phone,
		Mobile:           req.Mobile,
		Email:            req.Email,
		MembershipNumber: req.MembershipNumber,
		PaymentMethod:    PaymentMethod(req.PaymentMethod),
		IBAN:             req.IBAN,
		BIC:              req.BIC,
		DebitReference:   req.DebitReference,
		SubscriptionID:   req.SubscriptionID,
	}
	for _, field := range []struct {
		raw  string
		dest **time.Time
	}{
		{req.Birthday, &in.Birthday},
		{req.JoinedAt, &in.JoinedAt},
		{req.TerminatedAt, &in.TerminatedAt},
		{req.DebitMandateAt, &in.DebitMandateAt},
	} {
		if field.raw == "" {
			continue
		}
		t, err := time.Parse(dateLayout, field.raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "dates must be yyyy-mm-dd")
			return MemberInput{}, false
		}
		*field.dest = &t
	}
	return in, true
}

func (h *Handler) decodeSubscription(w http.ResponseWriter, r *http.Request) (SubscriptionInput, bool) {
	var req subscriptionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return SubscriptionInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return SubscriptionInput{}, false
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal string")
		return SubscriptionInput{}, false
	}
	return SubscriptionInput{
		Name:             req.Name,
		Amount:           amount,
		PaymentFrequency: PaymentFrequency(req.PaymentFrequency),
	}, true
}

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
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
	case errors.Is(err, ErrInUse):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
