package charge

import (
	"context"
	"log/slog"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/events"
)

// EventHandler issues charges off the event bus when a quote is approved,
// so approval flows that never touch the charges endpoint still settle.
type EventHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewEventHandler(service *Service, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, logger: logger}
}

func (h *EventHandler) RegisterHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeQuoteApproved, h.onQuoteApproved)
}

func (h *EventHandler) onQuoteApproved(ctx context.Context, event events.Event) error {
	approved, ok := event.(*events.QuoteApprovedEvent)
	if !ok {
		h.logger.Error("unexpected payload for quote approved event", "event_id", event.EventID())
		return nil
	}

	_, err := h.service.CreateCharge(ctx, approved.QuoteID)
	if err != nil {
		// A charge already issued through the HTTP endpoint is fine.
		if appErr, ok := internal.IsAppError(err); ok && appErr.Code == internal.ErrCodeDuplicateCharge {
			h.logger.Debug("charge already exists for approved quote", "quote_id", approved.QuoteID)
			return nil
		}
		h.logger.Error("charge issuance from approval event failed",
			"quote_id", approved.QuoteID,
			"error", err)
		return err
	}

	return nil
}
