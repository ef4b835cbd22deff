package charge

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	paymentsvc "github.com/danilocontato-coder/quotemasterpro-sub002/internal/payment"
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
	r.Post("/charges", h.CreateCharge)
}

// CreateCharge godoc
// @Summary Create a charge for an approved quote
// @Description Prices the quote, ensures the gateway customer exists and issues the charge, with a supplier split when the payout destination validates.
// @Tags charges
// @Accept json
// @Produce json
// @Param request body CreateChargeRequest true "Charge request"
// @Success 201 {object} payment.PaymentResponse
// @Failure 400 {object} internal.Response
// @Failure 404 {object} internal.Response
// @Failure 409 {object} internal.Response
// @Failure 502 {object} internal.Response
// @Router /api/v1/charges [post]
func (h *Handler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	var req CreateChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.service.CreateCharge(r.Context(), req.QuoteID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, paymentsvc.ToPaymentResponse(p))
}
