package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListPaymentMethods returns the global method catalog.
func (h *Handler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.methods.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load payment methods")
		return
	}
	respondJSON(w, http.StatusOK, methods)
}

// ListCountryMethods returns the rails configured and active in one country,
// the options a sender or receiver can actually pick at intake.
func (h *Handler) ListCountryMethods(w http.ResponseWriter, r *http.Request) {
	country, err := h.countryByISO(r.Context(), chi.URLParam(r, "iso"))
	if err != nil {
		respondError(w, http.StatusNotFound, "unknown country")
		return
	}
	methods, err := h.methods.ActiveByCountry(r.Context(), country.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load country methods")
		return
	}
	respondJSON(w, http.StatusOK, methods)
}
