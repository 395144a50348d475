package handlers

import (
	"net/http"
	"strings"

	"remit/internal/auth"
	"remit/internal/websocket"
)

// WSBalances streams sub-wallet balance changes for one country's rails.
// Browsers cannot set headers on websocket upgrades, so the token may also
// arrive as a query parameter.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	if _, err := auth.ParseToken(h.cfg.JWTSecret, token); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	country := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("country")))
	if country == "" {
		respondError(w, http.StatusBadRequest, "country is required")
		return
	}
	websocket.ServeWS(w, r, h.hub, country)
}
