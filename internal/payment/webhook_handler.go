package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	gwtypes "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/gateway"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/transport"
)

// TransferFailureHandler routes transfer failure notifications into the
// escrow retry pipeline.
type TransferFailureHandler interface {
	HandleTransferFailure(ctx context.Context, transferID, reason string) error
}

// WebhookEvent is the gateway's notification envelope. Charge events carry
// a payment object, transfer events a transfer object.
type WebhookEvent struct {
	Event    string `json:"event"`
	Payment  *WebhookCharge   `json:"payment,omitempty"`
	Transfer *WebhookTransfer `json:"transfer,omitempty"`
}

type WebhookCharge struct {
	ID     string                `json:"id"`
	Status gwtypes.ChargeStatus  `json:"status"`
}

type WebhookTransfer struct {
	ID         string                 `json:"id"`
	Status     gwtypes.TransferStatus `json:"status"`
	FailReason string                 `json:"failReason,omitempty"`
}

// WebhookHandler receives gateway notifications. Charge events feed the
// same reconciliation path as manual sync; transfer events are the only
// way a payout reaches completed or enters the retry pipeline.
type WebhookHandler struct {
	*transport.BaseHandler
	service  *Service
	failures TransferFailureHandler
	token    string
}

func NewWebhookHandler(service *Service, failures TransferFailureHandler, token string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: transport.NewBaseHandler(logger),
		service:     service,
		failures:    failures,
		token:       token,
	}
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/gateway", h.HandleGatewayEvent)
}

// HandleGatewayEvent godoc
// @Summary Receive a gateway webhook notification
// @Description Processes charge and transfer lifecycle events. Idempotent: duplicate deliveries are acknowledged without effect.
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/webhooks/gateway [post]
func (h *WebhookHandler) HandleGatewayEvent(w http.ResponseWriter, r *http.Request) {
	if h.token != "" && r.Header.Get("asaas-access-token") != h.token {
		h.WriteError(w, http.StatusUnauthorized, "invalid webhook token")
		return
	}

	var event WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	h.Logger.Info("gateway webhook received", "event", event.Event)

	var err error
	switch event.Event {
	case "PAYMENT_RECEIVED", "PAYMENT_CONFIRMED", "PAYMENT_OVERDUE", "PAYMENT_REFUNDED":
		err = h.handleChargeEvent(r.Context(), &event)
	case "TRANSFER_DONE":
		err = h.handleTransferDone(r.Context(), &event)
	case "TRANSFER_FAILED", "TRANSFER_CANCELLED":
		err = h.handleTransferFailed(r.Context(), &event)
	default:
		// Unknown events are acknowledged so the gateway stops redelivering.
		h.Logger.Debug("ignoring unhandled webhook event", "event", event.Event)
	}

	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeNotFound {
			// A charge we never issued; acknowledge rather than force redelivery.
			h.Logger.Warn("webhook references unknown record", "event", event.Event)
			h.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func (h *WebhookHandler) handleChargeEvent(ctx context.Context, event *WebhookEvent) error {
	if event.Payment == nil || event.Payment.ID == "" {
		return internal.NewValidationError("webhook payment payload missing", internal.ErrCodeValidationFailed)
	}
	_, err := h.service.ApplyChargeStatus(ctx, event.Payment.ID, event.Payment.Status)
	return err
}

func (h *WebhookHandler) handleTransferDone(ctx context.Context, event *WebhookEvent) error {
	if event.Transfer == nil || event.Transfer.ID == "" {
		return internal.NewValidationError("webhook transfer payload missing", internal.ErrCodeValidationFailed)
	}
	_, err := h.service.CompleteTransfer(ctx, event.Transfer.ID)
	return err
}

func (h *WebhookHandler) handleTransferFailed(ctx context.Context, event *WebhookEvent) error {
	if event.Transfer == nil || event.Transfer.ID == "" {
		return internal.NewValidationError("webhook transfer payload missing", internal.ErrCodeValidationFailed)
	}
	reason := event.Transfer.FailReason
	if reason == "" {
		reason = "transfer rejected by gateway"
	}
	return h.failures.HandleTransferFailure(ctx, event.Transfer.ID, reason)
}
