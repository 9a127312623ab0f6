package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vmoraes/debtflow/internal/bootstrap"
	"github.com/vmoraes/debtflow/internal/config"
	"github.com/vmoraes/debtflow/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.WorkerMetrics.Handler(),
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_error", "error", err)
		}
	}()

	go superviseLoop(ctx, app, cfg.SupervisorInterval)

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeImportStaged(ctx, func(handlerCtx context.Context, importID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.ProcessTimeout)
		defer cancel()

		app.WorkerMetrics.StartImport()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, importID)
		app.WorkerMetrics.FinishImport(time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("worker_metrics_shutdown_error", "error", err)
	}
}

// superviseLoop periodically republishes imports stuck in processing so a
// crashed worker's batches are picked up again.
func superviseLoop(ctx context.Context, app *bootstrap.App, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := app.SuperviseUC.Reconcile(ctx)
			if err != nil {
				slog.Error("supervisor_reconcile_error", "error", err)
				continue
			}
			if count > 0 {
				slog.Info("supervisor_redispatched", "count", count)
				app.WorkerMetrics.RecordRedispatch(count)
			}
		}
	}
}
