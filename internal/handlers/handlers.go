package handlers

import (
	"encoding/json"
	"net/http"

	"remit/internal/money"
	"remit/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func transactionResponse(txn store.Transaction) map[string]any {
	return map[string]any{
		"id":                  txn.ID,
		"reference":           txn.Reference,
		"status":              txn.Status,
		"sender_name":         txn.SenderName,
		"receiver_name":       txn.ReceiverName,
		"receiver_phone":      txn.ReceiverPhone,
		"amount":              money.Format(txn.Amount),
		"base_fee":            money.Format(txn.BaseFee),
		"percentage_fee":      txn.PercentageFee.String(),
		"total_fees":          money.Format(txn.TotalFees),
		"exchange_rate":       txn.ExchangeRate.String(),
		"margin":              txn.Margin.String(),
		"final_exchange_rate": txn.FinalExchangeRate.String(),
		"total_amount":        money.Format(txn.TotalAmount),
		"received_amount":     money.Format(txn.ReceivedAmount),
		"sender_method_id":    txn.SenderMethodID,
		"receiver_method_id":  txn.ReceiverMethodID,
		"gateway":             txn.Gateway,
		"created_at":          txn.CreatedAt,
		"updated_at":          txn.UpdatedAt,
	}
}
