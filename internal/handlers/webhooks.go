package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"remit/internal/services"
)

type webhookRequest struct {
	GatewayTxID string `json:"gateway_tx_id"`
	Status      string `json:"status"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

// GatewayWebhook takes payment notifications from the checkout providers.
// The response is 200 even for duplicates so the gateway stops retrying.
func (h *Handler) GatewayWebhook(w http.ResponseWriter, r *http.Request) {
	// an empty configured secret would match an empty header, so refuse
	// to take notifications at all until WEBHOOK_SECRET is set
	if h.cfg.WebhookSecret == "" {
		respondError(w, http.StatusServiceUnavailable, "webhook secret not configured")
		return
	}
	secret := r.Header.Get("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.cfg.WebhookSecret)) != 1 {
		respondError(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}
	gatewayName := chi.URLParam(r, "gateway")
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.GatewayTxID == "" {
		respondError(w, http.StatusBadRequest, "gateway_tx_id is required")
		return
	}
	amount := decimal.Zero
	if req.Amount != "" {
		parsed, err := decimal.NewFromString(req.Amount)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_amount")
			return
		}
		amount = parsed
	}
	txn, err := h.transfers.RecordGatewayNotification(r.Context(), gatewayName, req.GatewayTxID, req.Status, amount, req.Currency)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			respondError(w, http.StatusNotFound, "unknown transaction")
		case errors.Is(err, services.ErrVerificationMismatch):
			// acknowledged so the gateway stops retrying; the row is FAILED
			respondJSON(w, http.StatusOK, map[string]string{
				"reference": txn.Reference,
				"status":    txn.Status,
				"result":    "verification_mismatch",
			})
		default:
			respondError(w, http.StatusInternalServerError, "unable to process notification")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"reference": txn.Reference,
		"status":    txn.Status,
	})
}
