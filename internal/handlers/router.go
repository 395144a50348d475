package handlers

import (
	"net/http"

	"remit/internal/config"
	"remit/internal/middleware"
	"remit/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	cfg       config.Config
	countries CountryStore
	methods   MethodStore
	wallets   WalletStore
	entries   EntryStore
	events    EventStore
	pricing   PricingService
	transfers TransferService
	rails     RailSelector
	ledger    LedgerService
	sweeper   Sweeper
	hub       *websocket.Hub
}

func New(cfg config.Config, countries CountryStore, methods MethodStore, wallets WalletStore, entries EntryStore, events EventStore, pricing PricingService, transfers TransferService, rails RailSelector, ledger LedgerService, sweeper Sweeper, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:       cfg,
		countries: countries,
		methods:   methods,
		wallets:   wallets,
		entries:   entries,
		events:    events,
		pricing:   pricing,
		transfers: transfers,
		rails:     rails,
		ledger:    ledger,
		sweeper:   sweeper,
		hub:       hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Webhook-Secret"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/countries", h.ListCountries)
	router.Get("/countries/{iso}/methods", h.ListCountryMethods)
	router.Get("/payment-methods", h.ListPaymentMethods)
	router.Post("/quotes", h.CreateQuote)
	router.Get("/payout-rails", h.ListPayoutRails)
	router.Post("/transfers", h.CreateTransfer)
	router.Get("/transfers/{reference}", h.GetTransfer)
	router.Get("/transfers/{reference}/events", h.ListTransferEvents)
	router.Post("/transfers/{reference}/gateway", h.AttachGateway)
	router.Post("/webhooks/{gateway}", h.GatewayWebhook)
	router.Get("/ws/balances", h.WSBalances)

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.With(middleware.RequireRole("ops")).Post("/transfers/{id}/approve", h.ApproveTransfer)
		r.With(middleware.RequireRole("ops")).Post("/transfers/{id}/reject", h.RejectTransfer)
		r.With(middleware.RequireRole("ops")).Post("/transfers/{id}/payout", h.PayoutTransfer)
		r.With(middleware.RequireRole("ops")).Post("/reconcile", h.RunReconcile)
		r.With(middleware.RequireRole("")).Get("/wallets", h.ListWallets)
		r.With(middleware.RequireRole("")).Get("/wallets/{subWalletID}/entries", h.ListWalletEntries)
		r.With(middleware.RequireRole(middleware.RoleAdmin)).Post("/wallets/{subWalletID}/balance", h.SetWalletBalance)
		r.With(middleware.RequireRole(middleware.RoleAdmin)).Post("/wallets/sync", h.SyncWallets)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
