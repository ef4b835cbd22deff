package payment

import (
	"context"
	"log/slog"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/audit"
	gwtypes "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/gateway"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/payment"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/events"
)

// RepositoryAPI is the payment persistence surface. All status-moving
// writes are conditional on the current value so racing writers cannot
// produce lost updates.
type RepositoryAPI interface {
	Create(p *payment.Payment) error
	GetByID(id int64) (*payment.Payment, error)
	GetByQuoteID(quoteID int64) (*payment.Payment, error)
	GetByChargeID(chargeID string) (*payment.Payment, error)
	GetByTransferID(transferID string) (*payment.Payment, error)

	// TransitionStatus applies from→to only when the row still holds from.
	// Returns false when the precondition no longer holds.
	TransitionStatus(id int64, from, to payment.Status) (bool, error)

	// MarkTransferPending records the outbound transfer id and moves the
	// payout to pending, only when no transfer is pending or completed.
	MarkTransferPending(id int64, transferID string) (bool, error)
	MarkTransferFailed(id int64, reason string) error

	// MarkTransferCompleted is reserved for the settlement webhook: flips
	// transfer_status and payment status to completed exactly once.
	MarkTransferCompleted(id int64) (bool, error)
}

// ChargeReader is the slice of the gateway client the synchronizer uses.
type ChargeReader interface {
	GetCharge(ctx context.Context, chargeID string) (*gwtypes.Charge, error)
}

// Service owns buyer-side payment state: reading payments and reconciling
// the gateway's authoritative charge status into the internal state machine.
type Service struct {
	repo     RepositoryAPI
	gateway  ChargeReader
	auditor  audit.Recorder
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, gw ChargeReader, auditor audit.Recorder, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		gateway:  gw,
		auditor:  auditor,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *Service) GetPayment(id int64) (*payment.Payment, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrPaymentNotFound.WithCause(err)
	}
	return p, nil
}

func (s *Service) GetPaymentByQuoteID(quoteID int64) (*payment.Payment, error) {
	p, err := s.repo.GetByQuoteID(quoteID)
	if err != nil {
		return nil, internal.ErrPaymentNotFound.WithCause(err)
	}
	return p, nil
}

// MapChargeStatus maps the gateway charge status onto the internal state
// machine relative to the current status. The second return is false when
// no write is needed. Received and confirmed charges land in escrow, never
// directly in completed: funds are held, not yet released.
func MapChargeStatus(gs gwtypes.ChargeStatus, current payment.Status) (payment.Status, bool) {
	if current.IsTerminal() {
		return current, false
	}

	var target payment.Status
	switch gs {
	case gwtypes.ChargeStatusReceived, gwtypes.ChargeStatusConfirmed:
		target = payment.StatusInEscrow
	case gwtypes.ChargeStatusOverdue:
		target = payment.StatusOverdue
	case gwtypes.ChargeStatusRefunded:
		target = payment.StatusCancelled
	default:
		return current, false
	}

	if target == current || !payment.CanTransition(current, target) {
		return current, false
	}
	return target, true
}

// Sync pulls the authoritative charge status and reconciles it. Idempotent:
// an unchanged mapping is a no-op with no write and no audit entry, so the
// endpoint may be polled freely.
func (s *Service) Sync(ctx context.Context, paymentID int64) (*payment.Payment, error) {
	p, err := s.repo.GetByID(paymentID)
	if err != nil {
		return nil, internal.ErrPaymentNotFound.WithCause(err)
	}

	if p.GatewayChargeID == nil || *p.GatewayChargeID == "" {
		return nil, internal.NewValidationError("payment has no gateway charge to sync", internal.ErrCodeValidationFailed)
	}

	charge, err := s.gateway.GetCharge(ctx, *p.GatewayChargeID)
	if err != nil {
		s.logger.Error("charge status fetch failed",
			"payment_id", paymentID,
			"charge_id", *p.GatewayChargeID,
			"error", err)
		return nil, internal.NewGatewayError("failed to fetch charge status", internal.ErrCodeGatewayRejected, err)
	}

	return s.applyChargeStatus(ctx, p, charge.Status)
}

// ApplyChargeStatus is the webhook entry point: same mapping as Sync, fed
// by an inbound gateway event instead of a poll.
func (s *Service) ApplyChargeStatus(ctx context.Context, chargeID string, gs gwtypes.ChargeStatus) (*payment.Payment, error) {
	p, err := s.repo.GetByChargeID(chargeID)
	if err != nil {
		return nil, internal.ErrPaymentNotFound.WithCause(err)
	}
	return s.applyChargeStatus(ctx, p, gs)
}

func (s *Service) applyChargeStatus(ctx context.Context, p *payment.Payment, gs gwtypes.ChargeStatus) (*payment.Payment, error) {
	target, changed := MapChargeStatus(gs, p.Status)
	if !changed {
		s.logger.Debug("charge status unchanged, skipping write",
			"payment_id", p.ID,
			"status", string(p.Status),
			"gateway_status", string(gs))
		return p, nil
	}

	applied, err := s.repo.TransitionStatus(p.ID, p.Status, target)
	if err != nil {
		return nil, internal.NewInternalError("failed to persist status transition", err)
	}
	if !applied {
		// Another writer moved the payment first; re-read and report the
		// fresher state instead of fighting over it.
		s.logger.Info("status transition lost the race, re-reading",
			"payment_id", p.ID,
			"from", string(p.Status),
			"to", string(target))
		return s.repo.GetByID(p.ID)
	}

	previous := p.Status
	p.Status = target

	s.auditor.Record(ctx, audit.Entry{
		Action:   "payment_status_synced",
		Entity:   "payment",
		EntityID: p.ID,
		Details: map[string]interface{}{
			"from":           string(previous),
			"to":             string(target),
			"gateway_status": string(gs),
		},
	})

	if target == payment.StatusInEscrow {
		s.eventBus.Publish(ctx, events.NewPaymentInEscrowEvent(p.ID, p.QuoteID, p.BaseAmount))
	}

	s.logger.Info("payment status synced",
		"payment_id", p.ID,
		"from", string(previous),
		"to", string(target))

	return p, nil
}

// CompleteTransfer is invoked only by the settlement webhook, the sole
// authority allowed to mark a payout settled.
func (s *Service) CompleteTransfer(ctx context.Context, transferID string) (*payment.Payment, error) {
	p, err := s.repo.GetByTransferID(transferID)
	if err != nil {
		return nil, internal.ErrPaymentNotFound.WithCause(err)
	}

	applied, err := s.repo.MarkTransferCompleted(p.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to complete transfer", err)
	}
	if !applied {
		// Duplicate webhook delivery; the first one won.
		s.logger.Info("transfer completion already applied",
			"payment_id", p.ID,
			"transfer_id", transferID)
		return s.repo.GetByID(p.ID)
	}

	s.auditor.Record(ctx, audit.Entry{
		Action:   "transfer_completed",
		Entity:   "payment",
		EntityID: p.ID,
		Details: map[string]interface{}{
			"transfer_id": transferID,
		},
	})

	s.eventBus.Publish(ctx, events.NewTransferCompletedEvent(p.ID, p.SupplierID, transferID))

	s.logger.Info("transfer settled",
		"payment_id", p.ID,
		"transfer_id", transferID)

	return s.repo.GetByID(p.ID)
}
