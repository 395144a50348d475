package handlers

import (
	"encoding/json"
	"net/http"

	"remit/internal/money"
)

type quoteRequest struct {
	SenderCountry   string `json:"sender_country"`
	ReceiverCountry string `json:"receiver_country"`
	Amount          string `json:"amount"`
}

func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
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
	quote, err := h.pricing.Quote(r.Context(), sender.ID, receiver.ID, amount)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to price transfer")
		return
	}
	maxAmount := any(nil)
	if quote.MaxAmount.Valid {
		maxAmount = money.Format(quote.MaxAmount.Decimal)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"sender_country":      req.SenderCountry,
		"receiver_country":    req.ReceiverCountry,
		"sender_currency":     quote.SenderCurrency,
		"receiver_currency":   quote.ReceiverCurrency,
		"amount":              money.Format(amount),
		"base_fee":            money.Format(quote.BaseFee),
		"percentage_fee":      quote.PercentageFee.String(),
		"total_fees":          money.Format(quote.TotalFees),
		"exchange_rate":       quote.ExchangeRate.String(),
		"final_exchange_rate": quote.FinalExchangeRate.String(),
		"received_amount":     money.Format(quote.ReceivedAmount),
		"total_paid":          money.Format(quote.TotalPaid),
		"min_amount":          money.Format(quote.MinAmount),
		"max_amount":          maxAmount,
		"rate_source":         quote.Source,
	})
}

func (h *Handler) ListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.countries.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load countries")
		return
	}
	respondJSON(w, http.StatusOK, countries)
}
