/**
 * @description
 * This file sets up the HTTP router for the billing service using the
 * go-chi/chi router. The webhook endpoint is authenticated by its
 * payload signature, not by middleware; the admin surface requires an
 * admin JWT.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the billing routes.
func NewRouter(h *Handler, adminJWTSecret string) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Billing service is healthy"))
	})

	// Provider webhooks, authenticated by payload signature.
	r.Post("/webhooks/stripe", h.handleStripeWebhook)

	// Admin override surface.
	r.Route("/admin", func(r chi.Router) {
		r.Use(AdminAuthMiddleware(adminJWTSecret))

		r.Get("/referrals/qualified", h.handleListQualifiedReferrals)
		r.Post("/referrals/{referralID}/force", h.handleForceSchedule)
		r.Post("/referrals/{referralID}/cancel", h.handleCancelReferral)
		r.Get("/payouts/stats", h.handlePayoutStats)
		r.Get("/payouts/export", h.handleExportPayouts)
		r.Post("/payouts/run", h.handleRunPayouts)
	})

	return r
}
