package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/audit"
	auditpg "github.com/danilocontato-coder/quotemasterpro-sub002/internal/audit/postgres"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/events"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/retry"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/delivery"
	deliverypg "github.com/danilocontato-coder/quotemasterpro-sub002/internal/delivery/postgres"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/escrow"
	escrowpg "github.com/danilocontato-coder/quotemasterpro-sub002/internal/escrow/postgres"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/gateway"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/notification"
	notificationpg "github.com/danilocontato-coder/quotemasterpro-sub002/internal/notification/postgres"
	paymentpg "github.com/danilocontato-coder/quotemasterpro-sub002/internal/payment/postgres"
	payoutpg "github.com/danilocontato-coder/quotemasterpro-sub002/internal/payout/postgres"
	"github.com/danilocontato-coder/quotemasterpro-sub002/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers for deferred settlement work`,
}

// Escrow retry worker command
var escrowWorkerCmd = &cobra.Command{
	Use:   "escrow-retries",
	Short: "Start the escrow retry worker",
	Long:  `Drains the payout retry schedule: failed transfers whose backoff window has passed get a fresh release attempt`,
	Run: func(cmd *cobra.Command, args []string) {
		startEscrowRetryWorker()
	},
}

var (
	pollInterval time.Duration
	batchSize    int
)

func startEscrowRetryWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize orm: %v\n", err)
		os.Exit(1)
	}

	if pollInterval > 0 {
		config.Escrow.WorkerPollInterval = pollInterval
	}
	if batchSize > 0 {
		config.Escrow.WorkerBatchSize = batchSize
	}

	eventBus := events.NewEventBus(log)
	auditor := audit.NewService(auditpg.NewAuditRepository(gormDB), log)
	notifier := notification.NewService(notificationpg.NewNotificationRepository(gormDB), log)
	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL: config.Gateway.BaseURL(),
		APIKey:  config.Gateway.APIKey,
		Timeout: config.Gateway.RequestTimeout,
	}, log)

	deliveryService := delivery.NewService(deliverypg.NewDeliveryRepository(gormDB), config.Escrow.ConfirmationCodeTTL, log)
	orchestrator := escrow.NewOrchestrator(
		deliveryService,
		paymentpg.NewPaymentRepository(gormDB),
		payoutpg.NewSupplierRepository(gormDB),
		escrowpg.NewReleaseErrorRepository(gormDB),
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

	log.Info("escrow retry worker started",
		"poll_interval", config.Escrow.WorkerPollInterval,
		"batch_size", config.Escrow.WorkerBatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	go runRetryScheduler(ctx, orchestrator, config.Escrow, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("received signal, shutting down escrow retry worker", "signal", sig)
	cancel()
	log.Info("escrow retry worker shutdown complete")
}

func init() {
	escrowWorkerCmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "How often to scan for due retries (overrides config)")
	escrowWorkerCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Maximum retries per scan (overrides config)")

	workerCmd.AddCommand(escrowWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
