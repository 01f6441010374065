package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/intake-tracker/internal/application"
	"github.com/example/intake-tracker/internal/client"
	"github.com/example/intake-tracker/internal/config"
	httptransport "github.com/example/intake-tracker/internal/http"
	"github.com/example/intake-tracker/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	medicationRepo := sqlite.NewMedicationRepository(storage)
	scheduleRepo := sqlite.NewScheduleRepository(storage)
	logRepo := sqlite.NewDoseLogRepository(storage)

	// In external record-store mode the remote store owns the log history:
	// every committed log is mirrored into the local repository so adherence
	// reads stay consistent, and indicator queries delegate to the store.
	var store application.LogStore = application.NewRepositoryLogStore(logRepo)
	var indicatorSource application.IndicatorSource
	if cfg.RecordStoreURL != "" {
		recordStore := client.New(cfg.RecordStoreURL, "intaked")
		store = application.NewMirroredLogStore(recordStore, logRepo)
		indicatorSource = recordStore
		logger.Info("using external record store", "url", cfg.RecordStoreURL)
	}

	var adherenceService *application.AdherenceService
	invalidateIndicators := func() {
		if adherenceService != nil {
			adherenceService.InvalidateIndicators()
		}
	}

	medicationService := application.NewMedicationServiceWithLogger(medicationRepo, scheduleRepo, logRepo, invalidateIndicators, idGenerator, now, logger)
	coordinator := application.NewIntakeCoordinatorWithLogger(scheduleRepo, logRepo, store, invalidateIndicators, idGenerator, now, logger)
	adherenceService = application.NewAdherenceServiceWithSource(medicationRepo, scheduleRepo, logRepo, coordinator, indicatorSource, cfg.IndicatorCacheTTL, now)

	medicationHandler := httptransport.NewMedicationHandler(newSearchLimitAdapter(medicationService, cfg.SearchLimit), logger)
	adherenceHandler := httptransport.NewAdherenceHandler(adherenceService, coordinator, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Medications: medicationHandler,
		Adherence:   adherenceHandler,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("intake API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// searchLimitAdapter applies the configured default result limit to catalog
// searches that do not request one.
type searchLimitAdapter struct {
	service      *application.MedicationService
	defaultLimit int
}

func newSearchLimitAdapter(service *application.MedicationService, defaultLimit int) *searchLimitAdapter {
	return &searchLimitAdapter{service: service, defaultLimit: defaultLimit}
}

func (a *searchLimitAdapter) RegisterSchedule(ctx context.Context, params application.CreateScheduleParams) (application.Schedule, error) {
	return a.service.RegisterSchedule(ctx, params)
}

func (a *searchLimitAdapter) UpdateSchedule(ctx context.Context, params application.UpdateScheduleParams) (application.Schedule, error) {
	return a.service.UpdateSchedule(ctx, params)
}

func (a *searchLimitAdapter) RemoveSchedule(ctx context.Context, principal application.Principal, scheduleID string) error {
	return a.service.RemoveSchedule(ctx, principal, scheduleID)
}

func (a *searchLimitAdapter) GetSchedule(ctx context.Context, principal application.Principal, scheduleID string) (application.Schedule, error) {
	return a.service.GetSchedule(ctx, principal, scheduleID)
}

func (a *searchLimitAdapter) ListSchedules(ctx context.Context, params application.ListSchedulesParams) ([]application.Schedule, error) {
	return a.service.ListSchedules(ctx, params)
}

func (a *searchLimitAdapter) SearchCatalog(ctx context.Context, query string, limit int) ([]application.Medication, error) {
	if limit <= 0 {
		limit = a.defaultLimit
	}
	return a.service.SearchCatalog(ctx, query, limit)
}
