package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindTransferCreated      Kind = "transfer_created"
	KindTransferFailed       Kind = "transfer_failed"
	KindManualActionRequired Kind = "manual_action_required"
)

// Notification is a supplier-facing message about a payout event. Delivery
// channels (email, in-app) consume this table; the settlement engine only
// emits.
type Notification struct {
	ID         int64  `gorm:"primaryKey"`
	SupplierID int64  `gorm:"column:supplier_id;not null;index"`
	PaymentID  int64  `gorm:"column:payment_id;index"`
	Kind       Kind   `gorm:"column:kind;not null"`
	Message    string `gorm:"column:message;not null"`

	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"column:created_at;default:now()"`
}

func (Notification) TableName() string {
	return "notifications"
}

// Notifier is the notification sink injected into the escrow orchestrator.
type Notifier interface {
	TransferCreated(ctx context.Context, supplierID, paymentID int64, amount decimal.Decimal)
	TransferFailed(ctx context.Context, supplierID, paymentID int64, reason string, willRetry bool)
}

type Repository interface {
	Append(n *Notification) error
	ListBySupplier(supplierID int64, limit int) ([]*Notification, error)
}

// Service writes notifications best-effort; a sink failure never blocks a
// settlement operation.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) TransferCreated(ctx context.Context, supplierID, paymentID int64, amount decimal.Decimal) {
	s.append(&Notification{
		SupplierID: supplierID,
		PaymentID:  paymentID,
		Kind:       KindTransferCreated,
		Message:    fmt.Sprintf("Your payout of R$ %s was sent and awaits bank confirmation.", amount.StringFixed(2)),
	})
}

func (s *Service) TransferFailed(ctx context.Context, supplierID, paymentID int64, reason string, willRetry bool) {
	kind := KindTransferFailed
	message := fmt.Sprintf("Your payout failed (%s). We will retry automatically.", reason)
	if !willRetry {
		kind = KindManualActionRequired
		message = fmt.Sprintf("Your payout failed (%s). Please review your banking details; our team has been notified.", reason)
	}

	s.append(&Notification{
		SupplierID: supplierID,
		PaymentID:  paymentID,
		Kind:       kind,
		Message:    message,
	})
}

func (s *Service) append(n *Notification) {
	if err := s.repo.Append(n); err != nil {
		s.logger.Error("failed to append notification",
			"supplier_id", n.SupplierID,
			"payment_id", n.PaymentID,
			"kind", string(n.Kind),
			"error", err)
	}
}
