package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/clubledger/clubledger/internal/app"
	"github.com/clubledger/clubledger/internal/finance/accounts"
	"github.com/clubledger/clubledger/internal/finance/closure"
	"github.com/clubledger/clubledger/internal/finance/ledger"
	"github.com/clubledger/clubledger/internal/members"
	"github.com/clubledger/clubledger/internal/observability"
	"github.com/clubledger/clubledger/internal/platform/cache"
	"github.com/clubledger/clubledger/internal/platform/db"
	"github.com/clubledger/clubledger/internal/reporting"
	"github.com/clubledger/clubledger/internal/shared"
	"github.com/clubledger/clubledger/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	authStore := shared.NewAuthStore(pool)
	auditLogger := shared.NewAuditLogger(pool)

	settings := ledger.Settings{
		AccountingYear: cfg.AccountingYear,
		ResetPrefix:    cfg.ResetPrefix,
	}

	ledgerRepo := ledger.NewRepository(pool)
	draftStore := ledger.NewDraftStore(redisClient, cfg.DraftTTL)
	ledgerService := ledger.NewService(ledgerRepo, draftStore, auditLogger, settings)
	ledgerService.WithLogger(logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, authStore)

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(accountsRepo)
	accountsHandler := accounts.NewHandler(logger, accountsService, authStore)

	closureRepo := closure.NewRepository(pool)
	closureService := closure.NewService(closureRepo, auditLogger)
	closureHandler := closure.NewHandler(logger, closureService, authStore)

	membersRepo := members.NewRepository(pool)
	membersService := members.NewService(membersRepo, ledgerService, auditLogger, members.DuesConfig{
		IncomeAccount:  cfg.DuesIncomeAccount,
		DebitorAccount: cfg.DuesDebitorAccount,
		CostCenter:     cfg.DuesCostCenter,
		CostObject:     cfg.DuesCostObject,
	})
	membersHandler := members.NewHandler(logger, membersService, authStore)

	exporter := reporting.NewExporter(accountsService, ledgerService, closureService, membersService)
	renderer := reporting.NewRendererClient(cfg.RendererURL)
	reportingHandler := reporting.NewHandler(logger, exporter, renderer, authStore, func() int {
		return settings.Year(time.Now())
	})

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect job queue", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("job queue close", slog.Any("error", err))
		}
	}()
	triggerHandler := jobs.NewTriggerHandler(jobsClient, logger, authStore)
	jobsInspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobsHandler := jobs.NewHandler(jobsInspector, logger)
	jobs.RegisterQueueMetrics(metrics.Registerer(), jobsInspector)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Auth:             authStore,
		LedgerHandler:    ledgerHandler,
		AccountsHandler:  accountsHandler,
		ClosureHandler:   closureHandler,
		MembersHandler:   membersHandler,
		ReportingHandler: reportingHandler,
		TriggerHandler:   triggerHandler,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
