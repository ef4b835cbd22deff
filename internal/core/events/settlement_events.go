package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeQuoteApproved     = "quote.approved"
	EventTypePaymentInEscrow   = "payment.in_escrow"
	EventTypeDeliveryConfirmed = "delivery.confirmed"
	EventTypeTransferCreated   = "transfer.created"
	EventTypeTransferCompleted = "transfer.completed"
	EventTypeTransferFailed    = "transfer.failed"
)

type QuoteApprovedEvent struct {
	BaseEvent
	QuoteID    int64 `json:"quote_id"`
	ClientID   int64 `json:"client_id"`
	SupplierID int64 `json:"supplier_id"`
}

func NewQuoteApprovedEvent(quoteID, clientID, supplierID int64) *QuoteApprovedEvent {
	return &QuoteApprovedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeQuoteApproved,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"quote_id":    quoteID,
				"client_id":   clientID,
				"supplier_id": supplierID,
			},
		},
		QuoteID:    quoteID,
		ClientID:   clientID,
		SupplierID: supplierID,
	}
}

type PaymentInEscrowEvent struct {
	BaseEvent
	PaymentID int64           `json:"payment_id"`
	QuoteID   int64           `json:"quote_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func NewPaymentInEscrowEvent(paymentID, quoteID int64, amount decimal.Decimal) *PaymentInEscrowEvent {
	return &PaymentInEscrowEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentInEscrow,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id": paymentID,
				"quote_id":   quoteID,
				"amount":     amount.String(),
			},
		},
		PaymentID: paymentID,
		QuoteID:   quoteID,
		Amount:    amount,
	}
}

type DeliveryConfirmedEvent struct {
	BaseEvent
	DeliveryID  int64 `json:"delivery_id"`
	QuoteID     int64 `json:"quote_id"`
	ConfirmedBy int64 `json:"confirmed_by"`
}

func NewDeliveryConfirmedEvent(deliveryID, quoteID, confirmedBy int64) *DeliveryConfirmedEvent {
	return &DeliveryConfirmedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeDeliveryConfirmed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"delivery_id":  deliveryID,
				"quote_id":     quoteID,
				"confirmed_by": confirmedBy,
			},
		},
		DeliveryID:  deliveryID,
		QuoteID:     quoteID,
		ConfirmedBy: confirmedBy,
	}
}

type TransferCreatedEvent struct {
	BaseEvent
	PaymentID  int64           `json:"payment_id"`
	SupplierID int64           `json:"supplier_id"`
	TransferID string          `json:"transfer_id"`
	NetAmount  decimal.Decimal `json:"net_amount"`
}

func NewTransferCreatedEvent(paymentID, supplierID int64, transferID string, netAmount decimal.Decimal) *TransferCreatedEvent {
	return &TransferCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTransferCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":  paymentID,
				"supplier_id": supplierID,
				"transfer_id": transferID,
				"net_amount":  netAmount.String(),
			},
		},
		PaymentID:  paymentID,
		SupplierID: supplierID,
		TransferID: transferID,
		NetAmount:  netAmount,
	}
}

type TransferCompletedEvent struct {
	BaseEvent
	PaymentID  int64  `json:"payment_id"`
	SupplierID int64  `json:"supplier_id"`
	TransferID string `json:"transfer_id"`
}

func NewTransferCompletedEvent(paymentID, supplierID int64, transferID string) *TransferCompletedEvent {
	return &TransferCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTransferCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":  paymentID,
				"supplier_id": supplierID,
				"transfer_id": transferID,
			},
		},
		PaymentID:  paymentID,
		SupplierID: supplierID,
		TransferID: transferID,
	}
}

type TransferFailedEvent struct {
	BaseEvent
	PaymentID     int64  `json:"payment_id"`
	SupplierID    int64  `json:"supplier_id"`
	FailureReason string `json:"failure_reason"`
	RetryCount    int    `json:"retry_count"`
	WillRetry     bool   `json:"will_retry"`
}

func NewTransferFailedEvent(paymentID, supplierID int64, failureReason string, retryCount int, willRetry bool) *TransferFailedEvent {
	return &TransferFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTransferFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"supplier_id":    supplierID,
				"failure_reason": failureReason,
				"retry_count":    retryCount,
				"will_retry":     willRetry,
			},
		},
		PaymentID:     paymentID,
		SupplierID:    supplierID,
		FailureReason: failureReason,
		RetryCount:    retryCount,
		WillRetry:     willRetry,
	}
}
