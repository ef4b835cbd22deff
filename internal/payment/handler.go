package payment

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	service *Service
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		service:     service,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/payments/{id}", h.GetPayment)
	r.Post("/payments/{id}/sync", h.SyncPayment)
}

// GetPayment godoc
// @Summary Get payment by ID
// @Description Returns the settlement record with its fee breakdown and both status machines
// @Tags payments
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} PaymentResponse
// @Failure 404 {object} internal.Response
// @Router /api/v1/payments/{id} [get]
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	p, svcErr := h.service.GetPayment(id)
	if svcErr != nil {
		h.HandleServiceError(w, svcErr)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToPaymentResponse(p))
}

// SyncPayment godoc
// @Summary Synchronize payment status with the gateway
// @Description Fetches the authoritative charge status and reconciles the local record. Safe to call repeatedly.
// @Tags payments
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} PaymentResponse
// @Failure 404 {object} internal.Response
// @Failure 502 {object} internal.Response
// @Router /api/v1/payments/{id}/sync [post]
func (h *Handler) SyncPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	p, svcErr := h.service.Sync(r.Context(), id)
	if svcErr != nil {
		h.HandleServiceError(w, svcErr)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToPaymentResponse(p))
}
