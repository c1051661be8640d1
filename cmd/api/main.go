package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jakecourtright/HayFlow/docs"
	"github.com/jakecourtright/HayFlow/internal/auth"
	"github.com/jakecourtright/HayFlow/internal/config"
	"github.com/jakecourtright/HayFlow/internal/database"
	"github.com/jakecourtright/HayFlow/internal/http/handler"
	"github.com/jakecourtright/HayFlow/internal/http/middleware"
	"github.com/jakecourtright/HayFlow/internal/http/router"
	"github.com/jakecourtright/HayFlow/internal/jobs"
	"github.com/jakecourtright/HayFlow/internal/lock"
	"github.com/jakecourtright/HayFlow/internal/logger"
	"github.com/jakecourtright/HayFlow/internal/realtime"
	"github.com/jakecourtright/HayFlow/internal/repository"
	"github.com/jakecourtright/HayFlow/internal/service"
	"github.com/jakecourtright/HayFlow/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title HayFlow API
// @version 1.0
// @description Multi-tenant hay inventory ledger with dispatch tickets and invoicing

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API key for system integrations, combined with X-Org-ID

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)
	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)

	// Secrets come from the environment locally and from Key Vault when configured
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	archive, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Invoice archive initialized", zap.String("mode", cfg.Storage.Mode))

	locker, rdb, err := lock.New(ctx, &cfg.Redis, log)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(cfg.CORS.AllowedOrigins, log)
	go hub.Run(ctx)

	// Repositories
	txManager := repository.NewTxManager(db)
	stackRepo := repository.NewStackRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	numberSequenceRepo := repository.NewNumberSequenceRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)

	// Services
	numberSequenceService := service.NewNumberSequenceService(numberSequenceRepo, log)
	ledgerService := service.NewLedgerService(txManager, stackRepo, locationRepo, transactionRepo, locker, log)
	stackService := service.NewStackService(txManager, stackRepo, locationRepo, transactionRepo, log)
	locationService := service.NewLocationService(txManager, locationRepo, stackRepo, transactionRepo, log)
	ticketService := service.NewTicketService(txManager, ticketRepo, stackRepo, locationRepo, transactionRepo, invoiceRepo, ledgerService, numberSequenceService, hub, log)
	invoiceService := service.NewInvoiceService(txManager, invoiceRepo, ticketRepo, numberSequenceService, archive, hub, log)
	quickSaleService := service.NewQuickSaleService(ledgerService, ticketService, invoiceService, hub, log)
	reportService := service.NewReportService(stackRepo, transactionRepo, log)
	dashboardService := service.NewDashboardService(stackRepo, transactionRepo, log)
	preferenceService := service.NewPreferenceService(preferenceRepo, log)
	auditLogService := service.NewAuditLogService(auditLogRepo, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(cfg, log)
	orgFilter := middleware.NewOrgFilterMiddleware(log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	auditMiddleware := middleware.NewAuditMiddleware(auditLogService, nil, log)

	// Handlers
	var healthRedis redis.UniversalClient
	if rdb != nil {
		healthRedis = rdb
	}
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, cfg.App.PublicBaseURL, log)
	handlers := router.Handlers{
		Health:      handler.NewHealthHandler(db, healthRedis, log),
		Auth:        handler.NewAuthHandler(log),
		Stacks:      handler.NewStackHandler(stackService, log),
		Locations:   handler.NewLocationHandler(locationService, log),
		Ledger:      handler.NewTransactionHandler(ledgerService, log),
		Tickets:     handler.NewTicketHandler(ticketService, log),
		Invoices:    invoiceHandler,
		QuickSale:   handler.NewQuickSaleHandler(quickSaleService, invoiceHandler, log),
		Reports:     handler.NewReportHandler(reportService, dashboardService, log),
		Preferences: handler.NewPreferenceHandler(preferenceService, log),
		Audit:       handler.NewAuditHandler(auditLogService, log),
		Realtime:    handler.NewRealtimeHandler(hub, log),
	}

	rt := router.NewRouter(cfg, log, authMiddleware, orgFilter, rateLimiter, auditMiddleware, handlers)

	// Background jobs
	scheduler := jobs.NewScheduler(log)
	if cfg.Jobs.AuditRetentionEnabled {
		job := jobs.NewAuditRetentionJob(auditLogService, cfg.Jobs.AuditRetentionDays, 5*time.Minute, log)
		if err := scheduler.AddJob("audit-retention", cfg.Jobs.AuditRetentionCron, job.Run); err != nil {
			log.Error("Failed to register audit retention job", zap.Error(err))
		}
	}
	scheduler.Start()
	log.Info("Scheduler started", zap.Strings("jobs", scheduler.JobNames()))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		jobsDone := scheduler.Stop()
		<-jobsDone.Done()
		log.Info("Scheduler stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Closes websocket clients
		stop()

		if rdb != nil {
			if err := rdb.Close(); err != nil {
				log.Warn("Error closing redis client", zap.Error(err))
			}
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		log.Info("Server stopped gracefully")
	}

	return nil
}
