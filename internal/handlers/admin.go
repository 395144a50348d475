package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"remit/internal/middleware"
	"remit/internal/money"
	"remit/internal/services"
)

func (h *Handler) ApproveTransfer(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.UserIDFromContext(r.Context())
	txn, err := h.transfers.Approve(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			respondError(w, http.StatusNotFound, "transfer not found")
		case errors.Is(err, services.ErrInvalidTransition):
			respondError(w, http.StatusConflict, "transfer is not awaiting approval")
		case errors.Is(err, services.ErrVerificationMismatch):
			respondJSON(w, http.StatusConflict, map[string]any{
				"error":       "verification_mismatch",
				"transaction": transactionResponse(txn),
			})
		case errors.Is(err, services.ErrGatewayUnavailable):
			respondError(w, http.StatusBadGateway, "gateway verification unavailable")
		default:
			respondError(w, http.StatusInternalServerError, "unable to approve transfer")
		}
		return
	}
	respondJSON(w, http.StatusOK, transactionResponse(txn))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectTransfer(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.UserIDFromContext(r.Context())
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Reason == "" {
		respondError(w, http.StatusBadRequest, "reason is required")
		return
	}
	txn, err := h.transfers.Reject(r.Context(), chi.URLParam(r, "id"), actor, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			respondError(w, http.StatusNotFound, "transfer not found")
		case errors.Is(err, services.ErrInvalidTransition):
			respondError(w, http.StatusConflict, "transfer cannot be rejected in its current status")
		default:
			respondError(w, http.StatusInternalServerError, "unable to reject transfer")
		}
		return
	}
	respondJSON(w, http.StatusOK, transactionResponse(txn))
}

func (h *Handler) PayoutTransfer(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.UserIDFromContext(r.Context())
	txn, err := h.transfers.ForcePayout(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			respondError(w, http.StatusNotFound, "transfer not found")
		case errors.Is(err, services.ErrInvalidTransition):
			respondError(w, http.StatusConflict, "transfer is not approved for payout")
		case errors.Is(err, services.ErrInsufficientBalance):
			respondError(w, http.StatusConflict, "insufficient rail balance")
		case errors.Is(err, services.ErrGatewayUnavailable):
			respondError(w, http.StatusBadGateway, "payout gateway unavailable")
		default:
			respondError(w, http.StatusBadGateway, "payout failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, transactionResponse(txn))
}

func (h *Handler) RunReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to run reconciliation")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.wallets.ListSummaries(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load wallets")
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}

func (h *Handler) ListWalletEntries(w http.ResponseWriter, r *http.Request) {
	subWalletID := chi.URLParam(r, "subWalletID")
	limit, offset := paging(r, 50)
	entries, err := h.entries.ListBySubWallet(r.Context(), subWalletID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load entries")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

type setBalanceRequest struct {
	Balance     string `json:"balance"`
	Description string `json:"description"`
}

func (h *Handler) SetWalletBalance(w http.ResponseWriter, r *http.Request) {
	var req setBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	balance, err := decimal.NewFromString(req.Balance)
	if err != nil || balance.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_balance")
		return
	}
	description := req.Description
	if description == "" {
		description = "manual balance adjustment"
	}
	sub, err := h.ledger.SetBalance(r.Context(), chi.URLParam(r, "subWalletID"), balance, description)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to set balance")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"sub_wallet_id": sub.ID,
		"balance":       money.Format(sub.Balance),
	})
}

func (h *Handler) SyncWallets(w http.ResponseWriter, r *http.Request) {
	synced, err := h.ledger.SyncReadOnly(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to sync gateway balances")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"synced": synced})
}

func paging(r *http.Request, defaultLimit int) (int, int) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
