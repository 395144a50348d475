package websocket

import (
	"encoding/json"
	"sync"
)

type BalanceUpdate struct {
	SubWalletID string `json:"sub_wallet_id"`
	CountryISO  string `json:"country_iso"`
	Currency    string `json:"currency"`
	Balance     string `json:"balance"`
}

// Hub fans liquidity changes out to dashboards subscribed per country.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(countryISO string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[countryISO] == nil {
		h.clients[countryISO] = make(map[*Client]struct{})
	}
	h.clients[countryISO][client] = struct{}{}
}

func (h *Hub) Unregister(countryISO string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[countryISO] == nil {
		return
	}
	delete(h.clients[countryISO], client)
	if len(h.clients[countryISO]) == 0 {
		delete(h.clients, countryISO)
	}
}

func (h *Hub) BroadcastBalance(countryISO string, update BalanceUpdate) {
	payload, _ := json.Marshal(update)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[countryISO] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
