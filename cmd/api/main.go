package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dvloznov/budget-sync/internal/api"
	"github.com/dvloznov/budget-sync/internal/app"
	"github.com/dvloznov/budget-sync/internal/config"
	"github.com/dvloznov/budget-sync/internal/jobs"
	"github.com/dvloznov/budget-sync/internal/jobs/inmemory"
	"github.com/dvloznov/budget-sync/internal/logger"
	"github.com/dvloznov/budget-sync/internal/sheet"
)

func main() {
	configPath := flag.String("config", os.Getenv("BUDGET_SYNC_CONFIG"), "Configuration file path (or set BUDGET_SYNC_CONFIG)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.NewFromConfig(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if err != nil {
		return err
	}
	ctx := logger.WithContext(context.Background(), log)

	src, err := sheet.NewSheetsSource(ctx, cfg.SheetsOptions())
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, src, app.Options{Sink: cfg.BigQuery.Enabled, Archive: true})
	if err != nil {
		return err
	}
	defer a.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.API.QueueSize, cfg.API.Workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := jobQueue.Start(workerCtx, jobs.NewProcessBudgetHandler(a.Pipeline)); err != nil {
		return err
	}
	log.Info().Int("workers", cfg.API.Workers).Msg("Job workers started")

	server := &http.Server{
		Addr: ":" + strconv.Itoa(cfg.API.Port),
		Handler: api.NewRouter(api.Deps{
			Publisher: jobQueue,
			Jobs:      jobStore,
			Versions:  a.Versions,
			Artifacts: a.Artifacts,
			Log:       log,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.API.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop accepting jobs and let in-flight runs finish before cancelling them.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
	return nil
}
