package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/audit"
	deliverymodel "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/delivery"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/escrow"
	gwtypes "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/gateway"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/payment"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/supplier"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/events"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/retry"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/notification"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/payout"
)

// CodeConsumer redeems a delivery confirmation code exactly once.
type CodeConsumer interface {
	Consume(ctx context.Context, code string, confirmedBy int64) (*deliverymodel.Confirmation, error)
}

type PaymentRepository interface {
	GetByID(id int64) (*payment.Payment, error)
	GetByQuoteID(quoteID int64) (*payment.Payment, error)
	GetByTransferID(transferID string) (*payment.Payment, error)
	MarkTransferPending(id int64, transferID string) (bool, error)
	MarkTransferFailed(id int64, reason string) error
}

type SupplierRepository interface {
	GetByID(id int64) (*supplier.Supplier, error)
}

type ReleaseErrorRepository interface {
	Append(e *escrow.ReleaseError) error
	ListDue(now time.Time, limit int) ([]*escrow.ReleaseError, error)
	ListManualQueue(limit int) ([]*escrow.ReleaseError, error)
	MarkResolved(id int64, at time.Time) error
	ResolveAllForPayment(paymentID int64, at time.Time) error
	LatestOpenForPayment(paymentID int64) (*escrow.ReleaseError, error)
}

// TransferAPI is the gateway surface used to move escrowed funds out.
type TransferAPI interface {
	CreateTransfer(ctx context.Context, req *gwtypes.TransferRequest) (*gwtypes.Transfer, error)
	GetTransfer(ctx context.Context, transferID string) (*gwtypes.Transfer, error)
}

// Orchestrator releases escrowed funds to suppliers: it redeems the
// delivery confirmation, picks the payout destination and creates the
// gateway transfer. Failures land in the release-error ledger with an
// exponential retry schedule; exhausted retries park in the manual queue.
type Orchestrator struct {
	deliveries CodeConsumer
	payments   PaymentRepository
	suppliers  SupplierRepository
	errs       ReleaseErrorRepository
	gateway    TransferAPI
	notifier   notification.Notifier
	auditor    audit.Recorder
	eventBus   *events.EventBus
	policy     retry.Policy
	logger     *slog.Logger
}

func NewOrchestrator(
	deliveries CodeConsumer,
	payments PaymentRepository,
	suppliers SupplierRepository,
	errs ReleaseErrorRepository,
	gw TransferAPI,
	notifier notification.Notifier,
	auditor audit.Recorder,
	eventBus *events.EventBus,
	policy retry.Policy,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		deliveries: deliveries,
		payments:   payments,
		suppliers:  suppliers,
		errs:       errs,
		gateway:    gw,
		notifier:   notifier,
		auditor:    auditor,
		eventBus:   eventBus,
		policy:     policy,
		logger:     logger,
	}
}

// Release redeems a confirmation code and pays the supplier out. The code
// consumption is the concurrency gate: of two simultaneous redemptions only
// one gets past it.
func (o *Orchestrator) Release(ctx context.Context, code string, confirmedBy int64) (*payment.Payment, error) {
	conf, err := o.deliveries.Consume(ctx, code, confirmedBy)
	if err != nil {
		return nil, err
	}

	p, err := o.payments.GetByQuoteID(conf.QuoteID)
	if err != nil {
		return nil, internal.ErrPaymentNotFound.WithCause(err)
	}

	o.eventBus.Publish(ctx, events.NewDeliveryConfirmedEvent(conf.DeliveryID, conf.QuoteID, confirmedBy))

	return o.release(ctx, p)
}

// Retry re-drives a failed payout for one payment, either from the manual
// retry endpoint or the scheduler.
func (o *Orchestrator) Retry(ctx context.Context, paymentID int64) (*payment.Payment, error) {
	p, err := o.payments.GetByID(paymentID)
	if err != nil {
		return nil, internal.ErrPaymentNotFound.WithCause(err)
	}
	return o.release(ctx, p)
}

func (o *Orchestrator) release(ctx context.Context, p *payment.Payment) (*payment.Payment, error) {
	switch p.TransferStatus {
	case payment.TransferCompleted:
		return nil, internal.ErrTransferAlreadyDone
	case payment.TransferPending:
		// The failure webhook may have been missed; ask the gateway before
		// refusing. Completion still only ever comes in over the webhook.
		if !o.reconcilePending(ctx, p) {
			return nil, internal.ErrTransferPending
		}
	}

	if !p.Releasable() {
		return nil, internal.ErrPaymentNotReleasable.WithDetails(map[string]interface{}{
			"status": string(p.Status),
		})
	}

	sup, err := o.suppliers.GetByID(p.SupplierID)
	if err != nil {
		return nil, internal.ErrSupplierNotFound.WithCause(err)
	}

	dest, err := payout.ResolveDestination(sup)
	if err != nil {
		if errors.Is(err, internal.ErrMissingPayoutDetails) {
			// No amount of retrying fixes absent banking data; the record
			// goes straight to the manual queue until the supplier acts.
			o.recordFailure(ctx, p, escrow.ErrorMissingBankData, "supplier has no PIX key or complete bank account", false)
			return nil, internal.ErrMissingPayoutDetails
		}
		return nil, err
	}

	req := &gwtypes.TransferRequest{
		Value:             p.SupplierNetAmount,
		Description:       fmt.Sprintf("Repasse da cotação #%d", p.QuoteID),
		ExternalReference: fmt.Sprintf("payment:%d", p.ID),
	}
	dest.ApplyTo(req)

	transfer, err := o.gateway.CreateTransfer(ctx, req)
	if err != nil {
		o.logger.Error("transfer creation failed",
			"payment_id", p.ID,
			"supplier_id", p.SupplierID,
			"error", err)
		if markErr := o.payments.MarkTransferFailed(p.ID, err.Error()); markErr != nil {
			o.logger.Error("failed to record transfer failure on payment",
				"payment_id", p.ID,
				"error", markErr)
		}
		o.recordFailure(ctx, p, escrow.ErrorTransferFailed, err.Error(), true)
		return nil, internal.NewGatewayError("transfer creation failed", internal.ErrCodeTransferFailed, err)
	}

	claimed, err := o.payments.MarkTransferPending(p.ID, transfer.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to record pending transfer", err)
	}
	if !claimed {
		// A concurrent release won the claim between our status read and
		// this write. The gateway transfer we just made is the duplicate;
		// surface it for reconciliation rather than silently shrugging.
		o.logger.Error("transfer claim lost, possible duplicate transfer at gateway",
			"payment_id", p.ID,
			"transfer_id", transfer.ID)
		o.auditor.Record(ctx, audit.Entry{
			Action:   "duplicate_transfer_suspected",
			Entity:   "payment",
			EntityID: p.ID,
			Details:  map[string]interface{}{"transfer_id": transfer.ID},
		})
		return nil, internal.ErrTransferPending
	}

	now := time.Now()
	if err := o.errs.ResolveAllForPayment(p.ID, now); err != nil {
		o.logger.Warn("failed to resolve release errors after successful transfer",
			"payment_id", p.ID,
			"error", err)
	}

	o.auditor.Record(ctx, audit.Entry{
		Action:   "transfer_created",
		Entity:   "payment",
		EntityID: p.ID,
		Details: map[string]interface{}{
			"transfer_id": transfer.ID,
			"net_amount":  p.SupplierNetAmount.String(),
		},
	})

	o.notifier.TransferCreated(ctx, p.SupplierID, p.ID, p.SupplierNetAmount)
	o.eventBus.Publish(ctx, events.NewTransferCreatedEvent(p.ID, p.SupplierID, transfer.ID, p.SupplierNetAmount))

	o.logger.Info("transfer created",
		"payment_id", p.ID,
		"supplier_id", p.SupplierID,
		"transfer_id", transfer.ID,
		"net_amount", p.SupplierNetAmount.String())

	return o.payments.GetByID(p.ID)
}

// reconcilePending checks a pending transfer against the gateway. True means
// the transfer failed or was cancelled upstream and the payout slot has been
// reopened, so the release may proceed with a fresh attempt.
func (o *Orchestrator) reconcilePending(ctx context.Context, p *payment.Payment) bool {
	if p.GatewayTransferID == nil {
		return false
	}

	transfer, err := o.gateway.GetTransfer(ctx, *p.GatewayTransferID)
	if err != nil {
		o.logger.Warn("pending transfer lookup failed",
			"payment_id", p.ID,
			"transfer_id", *p.GatewayTransferID,
			"error", err)
		return false
	}

	switch transfer.Status {
	case gwtypes.TransferStatusFailed, gwtypes.TransferStatusCancelled:
	default:
		return false
	}

	reason := transfer.FailReason
	if reason == "" {
		reason = "transfer " + string(transfer.Status) + " at gateway"
	}
	o.logger.Warn("pending transfer found dead at gateway, reopening payout",
		"payment_id", p.ID,
		"transfer_id", *p.GatewayTransferID,
		"gateway_status", string(transfer.Status))

	if err := o.payments.MarkTransferFailed(p.ID, reason); err != nil {
		o.logger.Error("failed to reopen payout slot",
			"payment_id", p.ID,
			"error", err)
		return false
	}
	// Mirror what MarkTransferFailed wrote so the release proceeds on a
	// consistent view.
	p.Status = payment.StatusInEscrow
	p.TransferStatus = payment.TransferFailed
	p.FailureReason = &reason
	return true
}

// ManualQueue lists open release failures with no scheduled retry: exhausted
// backoff or missing banking data, waiting on an operator.
func (o *Orchestrator) ManualQueue(ctx context.Context, limit int) ([]*escrow.ReleaseError, error) {
	records, err := o.errs.ListManualQueue(limit)
	if err != nil {
		return nil, internal.NewInternalError("failed to list manual intervention queue", err)
	}
	return records, nil
}

// HandleTransferFailure reacts to the gateway reporting an outbound
// transfer as failed: the payout slot reopens and a retry is scheduled.
func (o *Orchestrator) HandleTransferFailure(ctx context.Context, transferID, reason string) error {
	p, err := o.payments.GetByTransferID(transferID)
	if err != nil {
		return internal.ErrPaymentNotFound.WithCause(err)
	}

	if p.TransferStatus == payment.TransferCompleted {
		// A failure notice after completion is stale; completion wins.
		o.logger.Warn("ignoring failure notice for completed transfer",
			"payment_id", p.ID,
			"transfer_id", transferID)
		return nil
	}

	if err := o.payments.MarkTransferFailed(p.ID, reason); err != nil {
		return internal.NewInternalError("failed to record transfer failure", err)
	}

	o.recordFailure(ctx, p, escrow.ErrorTransferFailed, reason, true)
	return nil
}

// ProcessDueRetries drains the retry schedule: every open failure whose
// window has passed gets one fresh release attempt. A failed attempt
// appends its own follow-up record, so the consumed one is closed either
// way.
func (o *Orchestrator) ProcessDueRetries(ctx context.Context, batchSize int) (int, error) {
	now := time.Now()
	due, err := o.errs.ListDue(now, batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing due retries: %w", err)
	}

	released := 0
	for _, e := range due {
		o.logger.Info("retrying escrow release",
			"payment_id", e.PaymentID,
			"retry_count", e.RetryCount)

		_, err := o.Retry(ctx, e.PaymentID)
		if err == nil {
			released++
			continue
		}

		o.logger.Warn("scheduled retry failed",
			"payment_id", e.PaymentID,
			"error", err)

		// Gateway failures supersede this record with a rescheduled one
		// inside the release path. Anything else (payment gone, transfer
		// already live or settled) means the record is moot; close it so
		// the scheduler stops re-driving it.
		if appErr, ok := internal.IsAppError(err); ok {
			switch appErr.Type {
			case internal.ErrorTypeNotFound, internal.ErrorTypeConflict:
				if resolveErr := o.errs.MarkResolved(e.ID, now); resolveErr != nil {
					o.logger.Error("failed to close moot retry record",
						"release_error_id", e.ID,
						"error", resolveErr)
				}
			}
		}
	}

	return released, nil
}

// recordFailure appends to the release-error ledger with the next slot from
// the backoff schedule. retryable=false pins the record in the manual queue
// immediately.
func (o *Orchestrator) recordFailure(ctx context.Context, p *payment.Payment, errType escrow.ErrorType, message string, retryable bool) {
	failureCount := 1
	prev, err := o.errs.LatestOpenForPayment(p.ID)
	if err != nil {
		o.logger.Error("failed to read prior release errors",
			"payment_id", p.ID,
			"error", err)
	} else if prev != nil {
		failureCount = prev.RetryCount + 1
	}

	var nextRetry *time.Time
	if retryable {
		nextRetry = o.policy.NextRetryAt(failureCount, time.Now())
	}
	willRetry := nextRetry != nil

	record := &escrow.ReleaseError{
		PaymentID:   p.ID,
		ErrorType:   errType,
		Message:     message,
		RetryCount:  failureCount,
		NextRetryAt: nextRetry,
	}
	if err := o.errs.Append(record); err != nil {
		o.logger.Error("failed to append release error",
			"payment_id", p.ID,
			"error", err)
	} else if prev != nil {
		// The new record carries the schedule; close the superseded one so
		// the scheduler never drives the same payment twice.
		if err := o.errs.MarkResolved(prev.ID, time.Now()); err != nil {
			o.logger.Error("failed to close superseded release error",
				"release_error_id", prev.ID,
				"error", err)
		}
	}

	o.auditor.Record(ctx, audit.Entry{
		Action:   "escrow_release_failed",
		Entity:   "payment",
		EntityID: p.ID,
		Details: map[string]interface{}{
			"error_type":  string(errType),
			"message":     message,
			"retry_count": failureCount,
			"will_retry":  willRetry,
		},
	})

	o.notifier.TransferFailed(ctx, p.SupplierID, p.ID, message, willRetry)
	o.eventBus.Publish(ctx, events.NewTransferFailedEvent(p.ID, p.SupplierID, message, failureCount, willRetry))

	if !willRetry {
		o.logger.Error("payout moved to manual intervention queue",
			"payment_id", p.ID,
			"error_type", string(errType),
			"retry_count", failureCount)
	}
}
