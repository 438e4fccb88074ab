package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/carebook/carebook/internal/config"
	"github.com/carebook/carebook/internal/events"
	v1 "github.com/carebook/carebook/internal/handler/v1"
	"github.com/carebook/carebook/internal/repository"
	"github.com/carebook/carebook/internal/schedule"
	"github.com/carebook/carebook/internal/service"
	"github.com/carebook/carebook/pkg/database"
	"github.com/carebook/carebook/pkg/logger"
	"github.com/carebook/carebook/pkg/metrics"
	"github.com/carebook/carebook/pkg/tracer"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting carebook api",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.Migrate(db, log); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	collector := metrics.NewCollector("carebook")
	if sqlDB, err := db.DB(); err == nil {
		collector.DBConnections.Set(float64(sqlDB.Stats().OpenConnections))
	}

	norm, err := schedule.NewNormalizer(cfg.Booking.BusinessTimeZone)
	if err != nil {
		return fmt.Errorf("loading business time zone: %w", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	var kafkaPublisher *events.KafkaPublisher
	if cfg.Events.Enabled() {
		kafkaPublisher = events.NewKafkaPublisher(cfg.Events, log, collector)
		publisher = kafkaPublisher
		log.Info("event publishing enabled", zap.Strings("brokers", cfg.Events.Brokers), zap.String("topic", cfg.Events.Topic))
	} else {
		log.Info("event publishing disabled, no brokers configured")
	}

	apptRepo := repository.NewAppointmentRepository(db)
	providerRepo := repository.NewProviderRepository(db)
	patientRepo := repository.NewPatientRepository(db)

	bookingSvc := service.NewBookingService(
		apptRepo,
		providerRepo,
		patientRepo,
		norm,
		publisher,
		cfg.Booking,
		log,
	)

	router := v1.NewRouter(v1.RouterDeps{
		Config:       cfg,
		Log:          log,
		Metrics:      collector,
		DB:           db,
		Appointments: v1.NewAppointmentHandler(bookingSvc, collector, log),
		Availability: v1.NewAvailabilityHandler(bookingSvc, collector, log),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Drain in dependency order: stop accepting requests, flush pending
	// events, then export remaining spans.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}
	if kafkaPublisher != nil {
		kafkaPublisher.Shutdown()
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("tracer shutdown failed", zap.Error(err))
	}

	log.Info("shutdown complete")
	return nil
}
