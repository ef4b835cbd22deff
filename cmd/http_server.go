package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/audit"
	auditpg "github.com/danilocontato-coder/quotemasterpro-sub002/internal/audit/postgres"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/charge"
	chargepg "github.com/danilocontato-coder/quotemasterpro-sub002/internal/charge/postgres"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/events"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/retry"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/delivery"
	deliverypg "github.com/danilocontato-coder/quotemasterpro-sub002/internal/delivery/postgres"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/escrow"
	escrowpg "github.com/danilocontato-coder/quotemasterpro-sub002/internal/escrow/postgres"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/fees"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/gateway"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/notification"
	notificationpg "github.com/danilocontato-coder/quotemasterpro-sub002/internal/notification/postgres"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/payment"
	paymentpg "github.com/danilocontato-coder/quotemasterpro-sub002/internal/payment/postgres"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/payout"
	payoutpg "github.com/danilocontato-coder/quotemasterpro-sub002/internal/payout/postgres"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/quote"
	quotepg "github.com/danilocontato-coder/quotemasterpro-sub002/internal/quote/postgres"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/transport/rest"
	"github.com/danilocontato-coder/quotemasterpro-sub002/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	GormDB   *gorm.DB
	Router   *chi.Mux
	Handlers rest.Handlers
	Escrow   *escrow.Orchestrator
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Handlers, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// The retry scheduler runs inside the server process so failed payouts
	// are re-driven without a separate deployment.
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	go runRetryScheduler(schedulerCtx, deps.Escrow, deps.Config.Escrow, deps.Logger)

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		stopScheduler()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		stopScheduler()
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func runRetryScheduler(ctx context.Context, orchestrator *escrow.Orchestrator, cfg internal.EscrowConfig, log *slog.Logger) {
	ticker := time.NewTicker(cfg.WorkerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("retry scheduler stopped")
			return
		case <-ticker.C:
			released, err := orchestrator.ProcessDueRetries(ctx, cfg.WorkerBatchSize)
			if err != nil {
				log.Error("retry scheduler pass failed", "error", err)
				continue
			}
			if released > 0 {
				log.Info("retry scheduler pass complete", "released", released)
			}
		}
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	eventBus := events.NewEventBus(log)

	// Repositories
	quoteRepo := quotepg.NewQuoteRepository(gormDB)
	clientRepo := chargepg.NewClientRepository(gormDB)
	supplierRepo := payoutpg.NewSupplierRepository(gormDB)
	paymentRepo := paymentpg.NewPaymentRepository(gormDB)
	deliveryRepo := deliverypg.NewDeliveryRepository(gormDB)
	releaseErrRepo := escrowpg.NewReleaseErrorRepository(gormDB)
	auditRepo := auditpg.NewAuditRepository(gormDB)
	notificationRepo := notificationpg.NewNotificationRepository(gormDB)

	// Shared services
	auditor := audit.NewService(auditRepo, log)
	notifier := notification.NewService(notificationRepo, log)
	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL: config.Gateway.BaseURL(),
		APIKey:  config.Gateway.APIKey,
		Timeout: config.Gateway.RequestTimeout,
	}, log)
	calculator := fees.NewCalculator(config.Fees, log)
	validator := payout.NewValidator(supplierRepo, gatewayClient, auditor, config.Escrow.FallbackIncome(), log)

	// Domain services
	quoteService := quote.NewService(quoteRepo, eventBus, log)
	chargeService := charge.NewService(quoteRepo, clientRepo, paymentRepo, gatewayClient, validator, calculator, auditor, config.Gateway.ChargeDueDays, log)
	paymentService := payment.NewService(paymentRepo, gatewayClient, auditor, eventBus, log)
	deliveryService := delivery.NewService(deliveryRepo, config.Escrow.ConfirmationCodeTTL, log)
	orchestrator := escrow.NewOrchestrator(
		deliveryService,
		paymentRepo,
		supplierRepo,
		releaseErrRepo,
		gatewayClient,
		notifier,
		auditor,
		eventBus,
		retry.Policy{
			MaxAttempts: config.Escrow.MaxTransferAttempts,
			BaseDelay:   config.Escrow.RetryBaseDelay,
		},
		log,
	)

	// Approved quotes trigger charge issuance off the bus.
	charge.NewEventHandler(chargeService, log).RegisterHandlers(eventBus)

	handlers := rest.Handlers{
		Quote:    quote.NewHandler(quoteService, log),
		Charge:   charge.NewHandler(chargeService, log),
		Payment:  payment.NewHandler(paymentService, log),
		Escrow:   escrow.NewHandler(orchestrator, log),
		Delivery: delivery.NewHandler(deliveryService, orchestrator, log),
		Webhook:  payment.NewWebhookHandler(paymentService, orchestrator, config.Gateway.WebhookToken, log),
	}

	return &Dependencies{
		Config:   config,
		Logger:   log,
		DB:       db,
		GormDB:   gormDB,
		Router:   chi.NewRouter(),
		Handlers: handlers,
		Escrow:   orchestrator,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
