package escrow

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	paymentsvc "github.com/danilocontato-coder/quotemasterpro-sub002/internal/payment"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	orchestrator *Orchestrator
}

func NewHandler(orchestrator *Orchestrator, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:  transport.NewBaseHandler(logger),
		orchestrator: orchestrator,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/payments/{id}/retry-transfer", h.RetryTransfer)
	r.Get("/escrow/manual-queue", h.ManualQueue)
}

type ReleaseErrorResponse struct {
	ID         int64     `json:"id"`
	PaymentID  int64     `json:"payment_id"`
	ErrorType  string    `json:"error_type"`
	Message    string    `json:"message"`
	RetryCount int       `json:"retry_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// RetryTransfer godoc
// @Summary Retry a failed supplier payout
// @Description Re-attempts the transfer for a payment whose previous payout failed. Rejected when a transfer is already pending or settled.
// @Tags escrow
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} payment.PaymentResponse
// @Failure 404 {object} internal.Response
// @Failure 409 {object} internal.Response
// @Failure 502 {object} internal.Response
// @Router /api/v1/payments/{id}/retry-transfer [post]
func (h *Handler) RetryTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	p, svcErr := h.orchestrator.Retry(r.Context(), id)
	if svcErr != nil {
		h.HandleServiceError(w, svcErr)
		return
	}

	h.WriteJSON(w, http.StatusOK, paymentsvc.ToPaymentResponse(p))
}

// ManualQueue godoc
// @Summary List payouts needing manual intervention
// @Description Lists open release failures with no scheduled retry: exhausted backoff or missing banking data.
// @Tags escrow
// @Produce json
// @Param limit query int false "Maximum records to return" default(50)
// @Success 200 {array} ReleaseErrorResponse
// @Router /api/v1/escrow/manual-queue [get]
func (h *Handler) ManualQueue(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	records, err := h.orchestrator.ManualQueue(r.Context(), limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	out := make([]ReleaseErrorResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, ReleaseErrorResponse{
			ID:         rec.ID,
			PaymentID:  rec.PaymentID,
			ErrorType:  string(rec.ErrorType),
			Message:    rec.Message,
			RetryCount: rec.RetryCount,
			CreatedAt:  rec.CreatedAt,
		})
	}

	h.WriteJSON(w, http.StatusOK, out)
}
