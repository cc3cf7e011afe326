package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clubledger/clubledger/internal/finance/accounts"
	"github.com/clubledger/clubledger/internal/finance/closure"
	"github.com/clubledger/clubledger/internal/finance/ledger"
	"github.com/clubledger/clubledger/internal/members"
	"github.com/clubledger/clubledger/internal/observability"
	"github.com/clubledger/clubledger/internal/reporting"
	"github.com/clubledger/clubledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Auth             Authenticator
	LedgerHandler    *ledger.Handler
	AccountsHandler  *accounts.Handler
	ClosureHandler   *closure.Handler
	MembersHandler   *members.Handler
	ReportingHandler *reporting.Handler
	TriggerHandler   *jobs.TriggerHandler
	JobsHandler      *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Auth:    params.Auth,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth(params.Logger, params.Auth))

		r.Route("/ledger", func(r chi.Router) {
			ledger.MountRoutes(r, params.LedgerHandler)
		})
		accounts.MountRoutes(r, params.AccountsHandler)
		closure.MountRoutes(r, params.ClosureHandler)
		members.MountRoutes(r, params.MembersHandler)
		reporting.MountRoutes(r, params.ReportingHandler)
		r.Route("/jobs", func(r chi.Router) {
			if params.TriggerHandler != nil {
				jobs.MountTriggerRoutes(r, params.TriggerHandler)
			}
			if params.JobsHandler != nil {
				params.JobsHandler.MountRoutes(r)
			}
		})
	})

	return r
}
