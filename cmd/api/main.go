package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/config"
	v1 "github.com/dmehra2102/prod-golang-projects/clinicops/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store/memstore"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/tracer"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "clinicops: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App)
	if err != nil {
		return fmt.Errorf("initialising tracer: %w", err)
	}

	m := metrics.NewCollector(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)

	st, ready, closeStore, err := openStore(cfg, m, log)
	if err != nil {
		return err
	}
	defer closeStore()

	clock := service.NewSystemClock(cfg.App.Location())
	jwtManager := auth.NewJWTManager(cfg.JWT)
	auditSvc := service.NewAuditService(st.Audit(), m, log.Named("audit"))

	services := v1.Services{
		Auth:         service.NewAuthService(st, jwtManager, auditSvc, log.Named("auth")),
		Patients:     service.NewPatientService(st, auditSvc, m, clock, cfg.Billing.IdentifierMaxAttempts, log.Named("patients")),
		Appointments: service.NewAppointmentService(st, auditSvc, m, clock, log.Named("appointments")),
		Bills:        service.NewBillingService(st, auditSvc, m, clock, cfg.Billing.IdentifierMaxAttempts, log.Named("billing")),
		Records:      service.NewMedicalRecordService(st, auditSvc, m, clock, log.Named("medical_records")),
		Reports:      service.NewReportingService(st, clock, log.Named("reports")),
	}

	if err := services.Auth.EnsureAdmin(ctx, cfg.Admin); err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(v1.RouterConfig{
		Services:    services,
		JWT:         jwtManager,
		Clock:       clock,
		Log:         log,
		Metrics:     m,
		Gatherer:    prometheus.DefaultGatherer,
		MetricsPath: cfg.Metrics.Path,
		CORS:        cfg.CORS,
		Ready:       ready,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("db_driver", cfg.Database.Driver),
			zap.String("timezone", cfg.App.Timezone),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	auditSvc.Shutdown(shutdownCtx)
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("tracer shutdown failed", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

// openStore selects the persistence backend from cfg.Database.Driver.
func openStore(cfg *config.Config, m *metrics.Collector, log *zap.Logger) (store.Store, func(context.Context) error, func(), error) {
	if cfg.Database.Driver == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), nil, func() {}, nil
	}

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.Migrate(db, log); err != nil {
		return nil, nil, nil, fmt.Errorf("migrating database: %w", err)
	}
	if err := database.Instrument(db, m.DBQueryDuration); err != nil {
		return nil, nil, nil, fmt.Errorf("instrumenting database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	closeFn := func() {
		if err := sqlDB.Close(); err != nil {
			log.Error("closing database", zap.Error(err))
		}
	}
	return repository.New(db), sqlDB.PingContext, closeFn, nil
}
