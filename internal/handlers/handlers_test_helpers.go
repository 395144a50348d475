package handlers

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"remit/internal/config"
	"remit/internal/services"
	"remit/internal/store"
	"remit/internal/websocket"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:      "test-secret",
		WebhookSecret:  "hook-secret",
		AllowedOrigins: "*",
	}
}

type stubCountryStore struct {
	getByISOFn func(ctx context.Context, isoCode string) (store.Country, error)
	listFn     func(ctx context.Context) ([]store.Country, error)
}

func (s stubCountryStore) GetByISO(ctx context.Context, isoCode string) (store.Country, error) {
	if s.getByISOFn == nil {
		return store.Country{}, sql.ErrNoRows
	}
	return s.getByISOFn(ctx, isoCode)
}

func (s stubCountryStore) List(ctx context.Context) ([]store.Country, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

type stubMethodStore struct {
	listFn            func(ctx context.Context) ([]store.PaymentMethod, error)
	activeByCountryFn func(ctx context.Context, countryID string) ([]store.CountryPaymentMethod, error)
}

func (s stubMethodStore) List(ctx context.Context) ([]store.PaymentMethod, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

func (s stubMethodStore) ActiveByCountry(ctx context.Context, countryID string) ([]store.CountryPaymentMethod, error) {
	if s.activeByCountryFn == nil {
		return nil, nil
	}
	return s.activeByCountryFn(ctx, countryID)
}

type stubWalletStore struct {
	listSummariesFn func(ctx context.Context) ([]store.WalletSummary, error)
}

func (s stubWalletStore) ListSummaries(ctx context.Context) ([]store.WalletSummary, error) {
	if s.listSummariesFn == nil {
		return nil, nil
	}
	return s.listSummariesFn(ctx)
}

type stubEntryStore struct {
	listFn func(ctx context.Context, subWalletID string, limit, offset int) ([]store.WalletEntry, error)
}

func (s stubEntryStore) ListBySubWallet(ctx context.Context, subWalletID string, limit, offset int) ([]store.WalletEntry, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, subWalletID, limit, offset)
}

type stubEventStore struct {
	listFn func(ctx context.Context, transactionID string) ([]store.TransactionEvent, error)
}

func (s stubEventStore) ListByTransaction(ctx context.Context, transactionID string) ([]store.TransactionEvent, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, transactionID)
}

type stubPricing struct {
	quoteFn func(ctx context.Context, senderCountryID, receiverCountryID string, amount decimal.Decimal) (services.PriceQuote, error)
}

func (s stubPricing) Quote(ctx context.Context, senderCountryID, receiverCountryID string, amount decimal.Decimal) (services.PriceQuote, error) {
	return s.quoteFn(ctx, senderCountryID, receiverCountryID, amount)
}

type stubTransfers struct {
	createFn         func(ctx context.Context, req services.CreateTransferRequest) (store.Transaction, error)
	getByReferenceFn func(ctx context.Context, reference string) (store.Transaction, error)
	attachFn         func(ctx context.Context, id, gatewayName, gatewayTxID string) error
	recordFn         func(ctx context.Context, gatewayName, gatewayTxID, rawStatus string, amount decimal.Decimal, currency string) (store.Transaction, error)
	approveFn        func(ctx context.Context, id, actor string) (store.Transaction, error)
	rejectFn         func(ctx context.Context, id, actor, reason string) (store.Transaction, error)
	forcePayoutFn    func(ctx context.Context, id, actor string) (store.Transaction, error)
}

func (s stubTransfers) Create(ctx context.Context, req services.CreateTransferRequest) (store.Transaction, error) {
	return s.createFn(ctx, req)
}

func (s stubTransfers) GetByReference(ctx context.Context, reference string) (store.Transaction, error) {
	return s.getByReferenceFn(ctx, reference)
}

func (s stubTransfers) AttachGatewayTransaction(ctx context.Context, id, gatewayName, gatewayTxID string) error {
	return s.attachFn(ctx, id, gatewayName, gatewayTxID)
}

func (s stubTransfers) RecordGatewayNotification(ctx context.Context, gatewayName, gatewayTxID, rawStatus string, amount decimal.Decimal, currency string) (store.Transaction, error) {
	return s.recordFn(ctx, gatewayName, gatewayTxID, rawStatus, amount, currency)
}

func (s stubTransfers) Approve(ctx context.Context, id, actor string) (store.Transaction, error) {
	return s.approveFn(ctx, id, actor)
}

func (s stubTransfers) Reject(ctx context.Context, id, actor, reason string) (store.Transaction, error) {
	return s.rejectFn(ctx, id, actor, reason)
}

func (s stubTransfers) ForcePayout(ctx context.Context, id, actor string) (store.Transaction, error) {
	return s.forcePayoutFn(ctx, id, actor)
}

type stubRails struct {
	railsFn func(ctx context.Context, receiverCountryID string, amount decimal.Decimal) ([]store.RailOption, error)
}

func (s stubRails) AvailableReceiverMethods(ctx context.Context, receiverCountryID string, amount decimal.Decimal) ([]store.RailOption, error) {
	return s.railsFn(ctx, receiverCountryID, amount)
}

type stubLedger struct {
	setBalanceFn func(ctx context.Context, subWalletID string, balance decimal.Decimal, description string) (store.SubWallet, error)
	syncFn       func(ctx context.Context) (int, error)
}

func (s stubLedger) SetBalance(ctx context.Context, subWalletID string, balance decimal.Decimal, description string) (store.SubWallet, error) {
	return s.setBalanceFn(ctx, subWalletID, balance, description)
}

func (s stubLedger) SyncReadOnly(ctx context.Context) (int, error) {
	return s.syncFn(ctx)
}

type stubSweeper struct {
	sweepFn func(ctx context.Context) (services.SweepReport, error)
}

func (s stubSweeper) Sweep(ctx context.Context) (services.SweepReport, error) {
	return s.sweepFn(ctx)
}

type handlerDeps struct {
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
}

func newTestHandler(deps handlerDeps) *Handler {
	return newTestHandlerWithConfig(testConfig(), deps)
}

func newTestHandlerWithConfig(cfg config.Config, deps handlerDeps) *Handler {
	if deps.countries == nil {
		deps.countries = stubCountryStore{}
	}
	if deps.methods == nil {
		deps.methods = stubMethodStore{}
	}
	if deps.wallets == nil {
		deps.wallets = stubWalletStore{}
	}
	if deps.entries == nil {
		deps.entries = stubEntryStore{}
	}
	if deps.events == nil {
		deps.events = stubEventStore{}
	}
	if deps.pricing == nil {
		deps.pricing = stubPricing{}
	}
	if deps.transfers == nil {
		deps.transfers = stubTransfers{}
	}
	if deps.rails == nil {
		deps.rails = stubRails{}
	}
	if deps.ledger == nil {
		deps.ledger = stubLedger{}
	}
	if deps.sweeper == nil {
		deps.sweeper = stubSweeper{}
	}
	return New(cfg, deps.countries, deps.methods, deps.wallets, deps.entries, deps.events, deps.pricing, deps.transfers, deps.rails, deps.ledger, deps.sweeper, websocket.NewHub())
}

func knownCountries(countries map[string]store.Country) stubCountryStore {
	return stubCountryStore{
		getByISOFn: func(_ context.Context, isoCode string) (store.Country, error) {
			country, ok := countries[isoCode]
			if !ok {
				return store.Country{}, sql.ErrNoRows
			}
			return country, nil
		},
	}
}
