package services

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"remit/internal/gateway"
	"remit/internal/store"
	"remit/internal/websocket"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubWalletStore struct {
	walletByCountryFn    func(ctx context.Context, countryID string) (store.Wallet, error)
	createWalletFn       func(ctx context.Context, tx store.Execer, id, countryID string) error
	subWalletByMethodFn  func(ctx context.Context, countryPaymentMethodID string) (store.SubWallet, error)
	createSubWalletFn    func(ctx context.Context, tx store.Execer, id, walletID, countryPaymentMethodID string, readOnly bool) error
	subWalletForUpdateFn func(ctx context.Context, tx store.Getter, id string) (store.SubWallet, error)
	updateBalanceFn      func(ctx context.Context, tx store.Execer, id string, balance decimal.Decimal) error
	recomputeTotalFn     func(ctx context.Context, tx store.Execer, walletID string) error
	listReadOnlyFn       func(ctx context.Context) ([]store.SubWallet, error)
}

func (s stubWalletStore) WalletByCountry(ctx context.Context, countryID string) (store.Wallet, error) {
	return s.walletByCountryFn(ctx, countryID)
}

func (s stubWalletStore) CreateWallet(ctx context.Context, tx store.Execer, id, countryID string) error {
	if s.createWalletFn == nil {
		return nil
	}
	return s.createWalletFn(ctx, tx, id, countryID)
}

func (s stubWalletStore) SubWalletByMethod(ctx context.Context, countryPaymentMethodID string) (store.SubWallet, error) {
	return s.subWalletByMethodFn(ctx, countryPaymentMethodID)
}

func (s stubWalletStore) CreateSubWallet(ctx context.Context, tx store.Execer, id, walletID, countryPaymentMethodID string, readOnly bool) error {
	if s.createSubWalletFn == nil {
		return nil
	}
	return s.createSubWalletFn(ctx, tx, id, walletID, countryPaymentMethodID, readOnly)
}

func (s stubWalletStore) SubWalletForUpdate(ctx context.Context, tx store.Getter, id string) (store.SubWallet, error) {
	return s.subWalletForUpdateFn(ctx, tx, id)
}

func (s stubWalletStore) UpdateSubWalletBalance(ctx context.Context, tx store.Execer, id string, balance decimal.Decimal) error {
	if s.updateBalanceFn == nil {
		return nil
	}
	return s.updateBalanceFn(ctx, tx, id, balance)
}

func (s stubWalletStore) RecomputeWalletTotal(ctx context.Context, tx store.Execer, walletID string) error {
	if s.recomputeTotalFn == nil {
		return nil
	}
	return s.recomputeTotalFn(ctx, tx, walletID)
}

func (s stubWalletStore) ListReadOnly(ctx context.Context) ([]store.SubWallet, error) {
	return s.listReadOnlyFn(ctx)
}

type stubEntryStore struct {
	insertFn func(ctx context.Context, tx store.Execer, input store.WalletEntryInput) error
}

func (s stubEntryStore) Insert(ctx context.Context, tx store.Execer, input store.WalletEntryInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, input)
}

type stubMethodStore struct {
	countryMethodFn func(ctx context.Context, id string) (store.CountryPaymentMethod, error)
}

func (s stubMethodStore) CountryMethod(ctx context.Context, id string) (store.CountryPaymentMethod, error) {
	return s.countryMethodFn(ctx, id)
}

type stubGatewayClient struct {
	verifyFn  func(ctx context.Context, gatewayTxID string) (gateway.Verification, error)
	payoutFn  func(ctx context.Context, railConfig string, req gateway.PayoutRequest) (gateway.PayoutResult, error)
	balanceFn func(ctx context.Context, currency string) (decimal.NullDecimal, error)
}

func (s stubGatewayClient) Verify(ctx context.Context, gatewayTxID string) (gateway.Verification, error) {
	return s.verifyFn(ctx, gatewayTxID)
}

func (s stubGatewayClient) Payout(ctx context.Context, railConfig string, req gateway.PayoutRequest) (gateway.PayoutResult, error) {
	return s.payoutFn(ctx, railConfig, req)
}

func (s stubGatewayClient) Balance(ctx context.Context, currency string) (decimal.NullDecimal, error) {
	return s.balanceFn(ctx, currency)
}

type stubGateways struct {
	client gateway.Client
	err    error
}

func (s stubGateways) Get(name string) (gateway.Client, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.client, nil
}

type stubHub struct {
	calls []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	s.calls = append(s.calls, update)
}

type stubRateConfigStore struct {
	corridorFn func(ctx context.Context, senderCountryID, receiverCountryID string) (store.RateRecord, error)
	countryFn  func(ctx context.Context, receiverCountryID string) (store.RateRecord, error)
	defaultFn  func(ctx context.Context) (store.RateRecord, error)
}

func (s stubRateConfigStore) ActiveCorridor(ctx context.Context, senderCountryID, receiverCountryID string) (store.RateRecord, error) {
	return s.corridorFn(ctx, senderCountryID, receiverCountryID)
}

func (s stubRateConfigStore) ActiveCountryRate(ctx context.Context, receiverCountryID string) (store.RateRecord, error) {
	return s.countryFn(ctx, receiverCountryID)
}

func (s stubRateConfigStore) DefaultRate(ctx context.Context) (store.RateRecord, error) {
	return s.defaultFn(ctx)
}

type stubCountryStore struct {
	getByIDFn func(ctx context.Context, countryID string) (store.Country, error)
}

func (s stubCountryStore) GetByID(ctx context.Context, countryID string) (store.Country, error) {
	return s.getByIDFn(ctx, countryID)
}

type stubRateProvider struct {
	rate decimal.Decimal
}

func (s stubRateProvider) Rate(ctx context.Context, fromCurrency, toCurrency string) decimal.Decimal {
	return s.rate
}

type stubRailStore struct {
	railsFn func(ctx context.Context, countryID string) ([]store.RailOption, error)
}

func (s stubRailStore) ActiveRailsByCountry(ctx context.Context, countryID string) ([]store.RailOption, error) {
	return s.railsFn(ctx, countryID)
}

type stubTransactionStore struct {
	createFn         func(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	getByIDFn        func(ctx context.Context, id string) (store.Transaction, error)
	getByReferenceFn func(ctx context.Context, reference string) (store.Transaction, error)
	getByGatewayIDFn func(ctx context.Context, gatewayName, gatewayTxID string) (store.Transaction, error)
	updateStatusFn   func(ctx context.Context, tx store.Execer, id, expected, next string) (int64, error)
	setGatewayIDFn   func(ctx context.Context, tx store.Execer, id, gatewayName, gatewayTxID string) error
}

func (s *stubTransactionStore) Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s *stubTransactionStore) GetByID(ctx context.Context, id string) (store.Transaction, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubTransactionStore) GetByReference(ctx context.Context, reference string) (store.Transaction, error) {
	return s.getByReferenceFn(ctx, reference)
}

func (s *stubTransactionStore) GetByGatewayID(ctx context.Context, gatewayName, gatewayTxID string) (store.Transaction, error) {
	return s.getByGatewayIDFn(ctx, gatewayName, gatewayTxID)
}

func (s *stubTransactionStore) UpdateStatus(ctx context.Context, tx store.Execer, id, expected, next string) (int64, error) {
	return s.updateStatusFn(ctx, tx, id, expected, next)
}

func (s *stubTransactionStore) SetGatewayID(ctx context.Context, tx store.Execer, id, gatewayName, gatewayTxID string) error {
	if s.setGatewayIDFn == nil {
		return nil
	}
	return s.setGatewayIDFn(ctx, tx, id, gatewayName, gatewayTxID)
}

type eventRecorder struct {
	mu    sync.Mutex
	kinds []string
}

func (r *eventRecorder) Append(ctx context.Context, tx store.Execer, transactionID, kind, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	return nil
}

func (r *eventRecorder) has(kind string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

type stubLedger struct {
	ensureSubWalletFn func(ctx context.Context, countryPaymentMethodID string) (store.SubWallet, error)
	creditFn          func(ctx context.Context, tx store.Tx, subWalletID string, amount decimal.Decimal, reference, description string) (store.SubWallet, error)
	debitFn           func(ctx context.Context, tx store.Tx, subWalletID string, amount decimal.Decimal, reference, description string) (store.SubWallet, error)
}

func (s stubLedger) EnsureSubWallet(ctx context.Context, countryPaymentMethodID string) (store.SubWallet, error) {
	return s.ensureSubWalletFn(ctx, countryPaymentMethodID)
}

func (s stubLedger) CreditTx(ctx context.Context, tx store.Tx, subWalletID string, amount decimal.Decimal, reference, description string) (store.SubWallet, error) {
	if s.creditFn == nil {
		return store.SubWallet{ID: subWalletID}, nil
	}
	return s.creditFn(ctx, tx, subWalletID, amount, reference, description)
}

func (s stubLedger) DebitTx(ctx context.Context, tx store.Tx, subWalletID string, amount decimal.Decimal, reference, description string) (store.SubWallet, error) {
	if s.debitFn == nil {
		return store.SubWallet{ID: subWalletID}, nil
	}
	return s.debitFn(ctx, tx, subWalletID, amount, reference, description)
}

type stubPricer struct {
	quoteFn func(ctx context.Context, senderCountryID, receiverCountryID string, amount decimal.Decimal) (PriceQuote, error)
}

func (s stubPricer) Quote(ctx context.Context, senderCountryID, receiverCountryID string, amount decimal.Decimal) (PriceQuote, error) {
	return s.quoteFn(ctx, senderCountryID, receiverCountryID, amount)
}

type stubSweepStore struct {
	listFn func(ctx context.Context, before time.Time) ([]store.StalePending, error)
}

func (s stubSweepStore) ListStalePending(ctx context.Context, before time.Time) ([]store.StalePending, error) {
	return s.listFn(ctx, before)
}

type stubSweepMachine struct {
	mu          sync.Mutex
	reverifyFn  func(ctx context.Context, id string) (store.Transaction, error)
	expireFn    func(ctx context.Context, id, reason string) (bool, error)
	reverified  []string
	expired     []string
	expireCalls []string
}

func (s *stubSweepMachine) ReverifyPending(ctx context.Context, id string) (store.Transaction, error) {
	s.mu.Lock()
	s.reverified = append(s.reverified, id)
	s.mu.Unlock()
	return s.reverifyFn(ctx, id)
}

func (s *stubSweepMachine) Expire(ctx context.Context, id, reason string) (bool, error) {
	s.mu.Lock()
	s.expired = append(s.expired, id)
	s.expireCalls = append(s.expireCalls, reason)
	s.mu.Unlock()
	return s.expireFn(ctx, id, reason)
}
