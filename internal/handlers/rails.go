package handlers

import (
	"net/http"

	"remit/internal/money"
	"remit/internal/store"
)

// ListPayoutRails returns the receiver-side methods able to disburse the
// given amount, ranked by available liquidity.
func (h *Handler) ListPayoutRails(w http.ResponseWriter, r *http.Request) {
	country, err := h.countryByISO(r.Context(), r.URL.Query().Get("country"))
	if err != nil {
		respondError(w, http.StatusNotFound, "unknown country")
		return
	}
	amount, err := parseAmount(r.URL.Query().Get("amount"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	rails, err := h.rails.AvailableReceiverMethods(r.Context(), country.ID, amount)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load payout rails")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"country": country.ISOCode,
		"amount":  money.Format(amount),
		"rails":   railResponses(rails),
	})
}

func railResponses(rails []store.RailOption) []map[string]any {
	out := make([]map[string]any, 0, len(rails))
	for _, rail := range rails {
		out = append(out, map[string]any{
			"country_payment_method_id": rail.CountryPaymentMethodID,
			"sub_wallet_id":             rail.SubWalletID,
			"method_name":               rail.MethodName,
			"balance":                   money.Format(rail.Balance),
			"is_automatic":              rail.IsAutomatic,
		})
	}
	return out
}
