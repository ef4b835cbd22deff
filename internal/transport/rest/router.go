package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/charge"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/delivery"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/escrow"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/payment"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/quote"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/transport/middleware"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/transport/swagger"
)

// Handlers bundles every route-owning handler for registration.
type Handlers struct {
	Quote    *quote.Handler
	Charge   *charge.Handler
	Payment  *payment.Handler
	Escrow   *escrow.Handler
	Delivery *delivery.Handler
	Webhook  *payment.WebhookHandler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve the OpenAPI document at root (outside the API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Webhook != nil {
			h.Webhook.RegisterRoutes(r)
		}
		if h.Quote != nil {
			h.Quote.RegisterRoutes(r)
		}
		if h.Charge != nil {
			h.Charge.RegisterRoutes(r)
		}
		if h.Payment != nil {
			h.Payment.RegisterRoutes(r)
		}
		if h.Escrow != nil {
			h.Escrow.RegisterRoutes(r)
		}
		if h.Delivery != nil {
			h.Delivery.RegisterRoutes(r)
		}
	})
}
