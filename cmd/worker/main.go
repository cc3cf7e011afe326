package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clubledger/clubledger/internal/app"
	"github.com/clubledger/clubledger/internal/finance/closure"
	"github.com/clubledger/clubledger/internal/finance/ledger"
	"github.com/clubledger/clubledger/internal/members"
	"github.com/clubledger/clubledger/internal/platform/cache"
	"github.com/clubledger/clubledger/internal/platform/db"
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

	auditLogger := shared.NewAuditLogger(pool)

	settings := ledger.Settings{
		AccountingYear: cfg.AccountingYear,
		ResetPrefix:    cfg.ResetPrefix,
	}

	ledgerRepo := ledger.NewRepository(pool)
	draftStore := ledger.NewDraftStore(redisClient, cfg.DraftTTL)
	ledgerService := ledger.NewService(ledgerRepo, draftStore, auditLogger, settings)
	ledgerService.WithLogger(logger)

	closureRepo := closure.NewRepository(pool)
	closureService := closure.NewService(closureRepo, auditLogger)

	membersRepo := members.NewRepository(pool)
	membersService := members.NewService(membersRepo, ledgerService, auditLogger, members.DuesConfig{
		IncomeAccount:  cfg.DuesIncomeAccount,
		DebitorAccount: cfg.DuesDebitorAccount,
		CostCenter:     cfg.DuesCostCenter,
		CostObject:     cfg.DuesCostObject,
	})

	duesTask, err := jobs.NewAssessDuesTask(jobs.AssessDuesPayload{ScheduledFor: time.Now()})
	if err != nil {
		logger.Error("build dues task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: &jobs.Handlers{
			Members: membersService,
			Closure: closureService,
			Logger:  logger,
		},
		Cron: []jobs.CronRegistration{
			// Dues assessment catches up monthly; the handler posts only
			// what is still outstanding.
			{Spec: "0 6 1 * *", Task: duesTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
