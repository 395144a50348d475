package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"remit/internal/services"
)

type transferRequest struct {
	SenderName       string `json:"sender_name"`
	SenderPhone      string `json:"sender_phone"`
	ReceiverName     string `json:"receiver_name"`
	ReceiverPhone    string `json:"receiver_phone"`
	SenderCountry    string `json:"sender_country"`
	ReceiverCountry  string `json:"receiver_country"`
	Amount           string `json:"amount"`
	SenderMethodID   string `json:"sender_method_id"`
	ReceiverMethodID string `json:"receiver_method_id"`
	GatewayTxID      string `json:"gateway_tx_id"`
}

func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.SenderName == "" || req.ReceiverName == "" || req.ReceiverPhone == "" {
		respondError(w, http.StatusBadRequest, "sender and receiver details are required")
		return
	}
	if req.SenderMethodID == "" {
		respondError(w, http.StatusBadRequest, "sender_method_id is required")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	sender, err := h.countryByISO(r.Context(), req.SenderCountry)
	if err != nil {
		respondError(w, http.StatusNotFound, "unknown sender country")
		return
	}
	receiver, err := h.countryByISO(r.Context(), req.ReceiverCountry)
	if err != nil {
		respondError(w, http.StatusNotFound, "unknown receiver country")
		return
	}
	txn, err := h.transfers.Create(r.Context(), services.CreateTransferRequest{
		SenderName:        req.SenderName,
		SenderPhone:       req.SenderPhone,
		ReceiverName:      req.ReceiverName,
		ReceiverPhone:     req.ReceiverPhone,
		SenderCountryID:   sender.ID,
		ReceiverCountryID: receiver.ID,
		Amount:            amount,
		SenderMethodID:    req.SenderMethodID,
		ReceiverMethodID:  req.ReceiverMethodID,
		GatewayTxID:       req.GatewayTxID,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAmountBelowMinimum):
			respondError(w, http.StatusBadRequest, "amount_below_minimum")
		case errors.Is(err, services.ErrAmountAboveMaximum):
			respondError(w, http.StatusBadRequest, "amount_above_maximum")
		case errors.Is(err, services.ErrReceiverMethodMissing):
			respondError(w, http.StatusBadRequest, "receiver_method_id is required")
		default:
			respondError(w, http.StatusInternalServerError, "unable to create transfer")
		}
		return
	}
	respondJSON(w, http.StatusCreated, transactionResponse(txn))
}

func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	txn, err := h.transfers.GetByReference(r.Context(), reference)
	if err != nil {
		if errors.Is(err, services.ErrTransactionNotFound) {
			respondError(w, http.StatusNotFound, "transfer not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load transfer")
		return
	}
	respondJSON(w, http.StatusOK, transactionResponse(txn))
}

func (h *Handler) ListTransferEvents(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	txn, err := h.transfers.GetByReference(r.Context(), reference)
	if err != nil {
		if errors.Is(err, services.ErrTransactionNotFound) {
			respondError(w, http.StatusNotFound, "transfer not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load transfer")
		return
	}
	events, err := h.events.ListByTransaction(r.Context(), txn.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

type attachGatewayRequest struct {
	Gateway     string `json:"gateway"`
	GatewayTxID string `json:"gateway_tx_id"`
}

func (h *Handler) AttachGateway(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	var req attachGatewayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Gateway == "" || req.GatewayTxID == "" {
		respondError(w, http.StatusBadRequest, "gateway and gateway_tx_id are required")
		return
	}
	txn, err := h.transfers.GetByReference(r.Context(), reference)
	if err != nil {
		if errors.Is(err, services.ErrTransactionNotFound) {
			respondError(w, http.StatusNotFound, "transfer not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load transfer")
		return
	}
	if err := h.transfers.AttachGatewayTransaction(r.Context(), txn.ID, req.Gateway, req.GatewayTxID); err != nil {
		if errors.Is(err, services.ErrInvalidTransition) {
			respondError(w, http.StatusConflict, "transfer is no longer pending")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to attach gateway transaction")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "attached"})
}
