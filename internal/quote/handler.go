package quote

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/quote"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/transport"
)

type QuoteResponse struct {
	ID            int64           `json:"id"`
	ClientID      int64           `json:"client_id"`
	SupplierID    int64           `json:"supplier_id"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	Installments  int             `json:"installments"`
	Status        string          `json:"status"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
}

func toQuoteResponse(q *quote.Quote) *QuoteResponse {
	return &QuoteResponse{
		ID:            q.ID,
		ClientID:      q.ClientID,
		SupplierID:    q.SupplierID,
		Total:         q.Total,
		PaymentMethod: q.PaymentMethod,
		Installments:  q.Installments,
		Status:        string(q.Status),
		ApprovedAt:    q.ApprovedAt,
	}
}

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
	r.Get("/quotes/{id}", h.GetQuote)
	r.Post("/quotes/{id}/approve", h.ApproveQuote)
}

// GetQuote godoc
// @Summary Get quote by ID
// @Tags quotes
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {object} QuoteResponse
// @Failure 404 {object} internal.Response
// @Router /api/v1/quotes/{id} [get]
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid quote id")
		return
	}

	q, svcErr := h.service.GetQuote(id)
	if svcErr != nil {
		h.HandleServiceError(w, svcErr)
		return
	}

	h.WriteJSON(w, http.StatusOK, toQuoteResponse(q))
}

// ApproveQuote godoc
// @Summary Approve a pending quote
// @Description Marks the quote approved and triggers charge issuance. Approving twice is a no-op.
// @Tags quotes
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {object} QuoteResponse
// @Failure 404 {object} internal.Response
// @Failure 409 {object} internal.Response
// @Router /api/v1/quotes/{id}/approve [post]
func (h *Handler) ApproveQuote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid quote id")
		return
	}

	q, svcErr := h.service.Approve(r.Context(), id)
	if svcErr != nil {
		h.HandleServiceError(w, svcErr)
		return
	}

	h.WriteJSON(w, http.StatusOK, toQuoteResponse(q))
}
