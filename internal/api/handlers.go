/**
 * @description
 * HTTP handlers for the billing service: the Stripe webhook endpoint
 * and the admin override surface. Handlers parse requests, call the
 * app layer, and write responses; no business logic lives here.
 */
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Gabrielzhin/App-sub001/internal/app"
	"github.com/Gabrielzhin/App-sub001/internal/store"
)

// Handler holds the application services the handlers interact with.
type Handler struct {
	webhooks *app.WebhookProcessor
	admin    *app.AdminService
	logger   *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(webhooks *app.WebhookProcessor, admin *app.AdminService, logger *slog.Logger) *Handler {
	return &Handler{webhooks: webhooks, admin: admin, logger: logger}
}

// handleStripeWebhook receives the provider's signed event payload. The
// body must stay raw: the signature covers the exact bytes delivered.
func (h *Handler) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Cannot read request body", http.StatusBadRequest)
		return
	}

	err = h.webhooks.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidSignature) {
			http.Error(w, "Invalid signature", http.StatusBadRequest)
			return
		}
		h.logger.Error("webhook processing failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// handleListQualifiedReferrals returns qualified-but-unpaid referrals.
func (h *Handler) handleListQualifiedReferrals(w http.ResponseWriter, r *http.Request) {
	referrals, err := h.admin.ListQualifiedReferrals(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, http.StatusOK, referrals)
}

// handlePayoutStats returns aggregate payout counters.
func (h *Handler) handlePayoutStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.PayoutStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// handleExportPayouts returns the payout audit trail as CSV. The export
// is buffered so a failed query still produces a proper error status
// instead of headers followed by a truncated body.
func (h *Handler) handleExportPayouts(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.admin.ExportPayoutsCSV(r.Context(), &buf); err != nil {
		h.logger.Error("payout export failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="payouts.csv"`)
	w.Write(buf.Bytes())
}

// handleForceSchedule pulls a referral's payout forward and runs the batch.
func (h *Handler) handleForceSchedule(w http.ResponseWriter, r *http.Request) {
	referralID := chi.URLParam(r, "referralID")

	result, err := h.admin.ForceSchedulePayout(r.Context(), referralID)
	if err != nil {
		if errors.Is(err, store.ErrReferralNotFound) {
			http.Error(w, "Referral not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// handleCancelReferral applies the terminal admin cancellation.
func (h *Handler) handleCancelReferral(w http.ResponseWriter, r *http.Request) {
	referralID := chi.URLParam(r, "referralID")

	err := h.admin.CancelReferral(r.Context(), referralID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrReferralNotFound):
			http.Error(w, "Referral not found", http.StatusNotFound)
		case errors.Is(err, app.ErrReferralAlreadyPaid):
			http.Error(w, "Referral already paid", http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

// handleRunPayouts triggers the payout batch on demand.
func (h *Handler) handleRunPayouts(w http.ResponseWriter, r *http.Request) {
	result, err := h.admin.RunPayouts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
