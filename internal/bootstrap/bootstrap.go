package bootstrap

import (
	"context"
	"fmt"

	"github.com/vmoraes/debtflow/internal/config"
	"github.com/vmoraes/debtflow/internal/core/normalize"
	"github.com/vmoraes/debtflow/internal/core/ports"
	"github.com/vmoraes/debtflow/internal/core/usecase"
	"github.com/vmoraes/debtflow/internal/infrastructure/queue/nats"
	"github.com/vmoraes/debtflow/internal/infrastructure/repository/postgres"
	"github.com/vmoraes/debtflow/internal/infrastructure/resilience"
	"github.com/vmoraes/debtflow/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue      ports.ImportQueue
	ImportRepo ports.ImportRepository

	SubmitUC    ports.ImportSubmitter
	ProcessUC   ports.ImportProcessor
	SuperviseUC ports.ImportSupervisor

	HTTPMetrics   *metrics.HTTPServerMetrics
	WorkerMetrics *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	importRepo := postgres.NewImportRepository(db)
	personRepo := postgres.NewPersonRepository(db)
	debtRepo := postgres.NewDebtRepository(db)
	userRepo := postgres.NewUserRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	aliases := normalize.DefaultAliasTable()
	if cfg.AliasTablePath != "" {
		aliases, err = normalize.LoadAliasTable(cfg.AliasTablePath)
		if err != nil {
			queue.Close()
			_ = db.Close()
			return nil, fmt.Errorf("load alias table: %w", err)
		}
	}

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	workerMetrics := metrics.NewWorkerMetrics("worker")

	identity := usecase.NewIdentityResolver(personRepo)
	debts := usecase.NewDebtRecorder(debtRepo)

	submitUC := usecase.NewSubmitImportUseCase(importRepo, userRepo, queue, cfg.StagingChunkSize)
	processUC := usecase.NewProcessImportUseCase(importRepo, identity, debts, aliases, workerMetrics)
	superviseUC := usecase.NewSuperviseImportsUseCase(importRepo, queue, cfg.ImportStuckAfter)

	return &App{
		Config: cfg,

		Queue:      queue,
		ImportRepo: importRepo,

		SubmitUC:    submitUC,
		ProcessUC:   processUC,
		SuperviseUC: superviseUC,

		HTTPMetrics:   httpMetrics,
		WorkerMetrics: workerMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
