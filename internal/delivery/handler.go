package delivery

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/common/validation"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/payment"
	paymentsvc "github.com/danilocontato-coder/quotemasterpro-sub002/internal/payment"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/transport"
)

// Releaser kicks off the escrow release once a code is redeemed.
type Releaser interface {
	Release(ctx context.Context, code string, confirmedBy int64) (*payment.Payment, error)
}

type DispatchRequest struct {
	QuoteID int64 `json:"quote_id"`
}

func (r *DispatchRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("quote_id", r.QuoteID).Required().MinInt(1, internal.ErrCodeValidationFailed)

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type DispatchResponse struct {
	DeliveryID       int64     `json:"delivery_id"`
	QuoteID          int64     `json:"quote_id"`
	ConfirmationCode string    `json:"confirmation_code"`
	CodeExpiresAt    time.Time `json:"code_expires_at"`
}

type ConfirmRequest struct {
	Code        string `json:"code"`
	ConfirmedBy int64  `json:"confirmed_by"`
}

func (r *ConfirmRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("code", r.Code).Required().MinLength(8).MaxLength(8)
	v.Field("confirmed_by", r.ConfirmedBy).Required().MinInt(1, internal.ErrCodeValidationFailed)

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type Handler struct {
	*transport.BaseHandler
	service  *Service
	releaser Releaser
}

func NewHandler(service *Service, releaser Releaser, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		service:     service,
		releaser:    releaser,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/deliveries", h.DispatchDelivery)
	r.Post("/deliveries/confirm", h.ConfirmDelivery)
}

// DispatchDelivery godoc
// @Summary Register a dispatched delivery
// @Description Creates the delivery record and mints its single-use confirmation code.
// @Tags deliveries
// @Accept json
// @Produce json
// @Param request body DispatchRequest true "Dispatch request"
// @Success 201 {object} DispatchResponse
// @Failure 400 {object} internal.Response
// @Router /api/v1/deliveries [post]
func (h *Handler) DispatchDelivery(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, conf, err := h.service.Dispatch(r.Context(), req.QuoteID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, DispatchResponse{
		DeliveryID:       d.ID,
		QuoteID:          d.QuoteID,
		ConfirmationCode: conf.Code,
		CodeExpiresAt:    conf.ExpiresAt,
	})
}

// ConfirmDelivery godoc
// @Summary Confirm a delivery and release escrowed funds
// @Description Redeems the confirmation code and triggers the supplier payout. A used or expired code is rejected.
// @Tags deliveries
// @Accept json
// @Produce json
// @Param request body ConfirmRequest true "Confirmation request"
// @Success 200 {object} payment.PaymentResponse
// @Failure 400 {object} internal.Response
// @Failure 404 {object} internal.Response
// @Failure 409 {object} internal.Response
// @Router /api/v1/deliveries/confirm [post]
func (h *Handler) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.releaser.Release(r.Context(), req.Code, req.ConfirmedBy)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, paymentsvc.ToPaymentResponse(p))
}
