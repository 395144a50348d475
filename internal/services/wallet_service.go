package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"remit/internal/db"
	"remit/internal/gateway"
	"remit/internal/store"
	"remit/internal/websocket"
)

var (
	ErrInsufficientBalance = errors.New("insufficient sub-wallet balance")
	ErrReadOnlySubWallet   = errors.New("sub-wallet is gateway-mirrored and read only")
	ErrInvalidAmount       = errors.New("invalid amount")
)

type WalletStore interface {
	WalletByCountry(ctx context.Context, countryID string) (store.Wallet, error)
	CreateWallet(ctx context.Context, tx store.Execer, id, countryID string) error
	SubWalletByMethod(ctx context.Context, countryPaymentMethodID string) (store.SubWallet, error)
	CreateSubWallet(ctx context.Context, tx store.Execer, id, walletID, countryPaymentMethodID string, readOnly bool) error
	SubWalletForUpdate(ctx context.Context, tx store.Getter, id string) (store.SubWallet, error)
	UpdateSubWalletBalance(ctx context.Context, tx store.Execer, id string, balance decimal.Decimal) error
	RecomputeWalletTotal(ctx context.Context, tx store.Execer, walletID string) error
	ListReadOnly(ctx context.Context) ([]store.SubWallet, error)
}

type WalletEntryStore interface {
	Insert(ctx context.Context, tx store.Execer, input store.WalletEntryInput) error
}

type MethodStore interface {
	CountryMethod(ctx context.Context, id string) (store.CountryPaymentMethod, error)
}

type Gateways interface {
	Get(name string) (gateway.Client, error)
}

type BalanceHub interface {
	BroadcastBalance(countryISO string, update websocket.BalanceUpdate)
}

// WalletService owns the custodial ledger. Every balance change locks the
// sub-wallet row, journals an entry and rewrites the wallet aggregate inside
// one database transaction, so the cached wallet total is never observably
// stale against its own sub-wallets.
type WalletService struct {
	txRunner db.TxRunner
	wallets  WalletStore
	entries  WalletEntryStore
	methods  MethodStore
	gateways Gateways
	hub      BalanceHub
	logger   zerolog.Logger
}

func NewWalletService(txRunner db.TxRunner, wallets WalletStore, entries WalletEntryStore, methods MethodStore, gateways Gateways, hub BalanceHub, logger zerolog.Logger) *WalletService {
	return &WalletService{
		txRunner: txRunner,
		wallets:  wallets,
		entries:  entries,
		methods:  methods,
		gateways: gateways,
		hub:      hub,
		logger:   logger,
	}
}

// EnsureWallet creates the country wallet on first use.
func (s *WalletService) EnsureWallet(ctx context.Context, countryID string) (store.Wallet, error) {
	wallet, err := s.wallets.WalletByCountry(ctx, countryID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.Wallet{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.wallets.CreateWallet(ctx, tx, uuid.NewString(), countryID)
	})
	if err != nil {
		return store.Wallet{}, err
	}
	return s.wallets.WalletByCountry(ctx, countryID)
}

// EnsureSubWallet creates the rail's balance bucket on first use. Rails
// custodied at an external gateway are created read-only: their balance is
// only ever overwritten by the sync, never locally credited or debited.
func (s *WalletService) EnsureSubWallet(ctx context.Context, countryPaymentMethodID string) (store.SubWallet, error) {
	sub, err := s.wallets.SubWalletByMethod(ctx, countryPaymentMethodID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.SubWallet{}, err
	}
	method, err := s.methods.CountryMethod(ctx, countryPaymentMethodID)
	if err != nil {
		return store.SubWallet{}, err
	}
	wallet, err := s.EnsureWallet(ctx, method.CountryID)
	if err != nil {
		return store.SubWallet{}, err
	}
	readOnly := method.MethodKind == "hybrid_gateway"
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.wallets.CreateSubWallet(ctx, tx, uuid.NewString(), wallet.ID, countryPaymentMethodID, readOnly)
	})
	if err != nil {
		return store.SubWallet{}, err
	}
	return s.wallets.SubWalletByMethod(ctx, countryPaymentMethodID)
}

func (s *WalletService) Credit(ctx context.Context, subWalletID string, amount decimal.Decimal, reference, description string) (store.SubWallet, error) {
	var updated store.SubWallet
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var txErr error
		updated, txErr = s.CreditTx(ctx, tx, subWalletID, amount, reference, description)
		return txErr
	})
	return updated, err
}

func (s *WalletService) Debit(ctx context.Context, subWalletID string, amount decimal.Decimal, reference, description string) (store.SubWallet, error) {
	var updated store.SubWallet
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var txErr error
		updated, txErr = s.DebitTx(ctx, tx, subWalletID, amount, reference, description)
		return txErr
	})
	return updated, err
}

// CreditTx runs inside a caller-owned transaction so settlement can move
// money and transition state atomically.
func (s *WalletService) CreditTx(ctx context.Context, tx store.Tx, subWalletID string, amount decimal.Decimal, reference, description string) (store.SubWallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return store.SubWallet{}, ErrInvalidAmount
	}
	sub, err := s.wallets.SubWalletForUpdate(ctx, tx, subWalletID)
	if err != nil {
		return store.SubWallet{}, err
	}
	if sub.ReadOnly {
		return store.SubWallet{}, ErrReadOnlySubWallet
	}
	return s.apply(ctx, tx, sub, amount, sub.Balance.Add(amount), reference, description)
}

func (s *WalletService) DebitTx(ctx context.Context, tx store.Tx, subWalletID string, amount decimal.Decimal, reference, description string) (store.SubWallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return store.SubWallet{}, ErrInvalidAmount
	}
	sub, err := s.wallets.SubWalletForUpdate(ctx, tx, subWalletID)
	if err != nil {
		return store.SubWallet{}, err
	}
	if sub.ReadOnly {
		return store.SubWallet{}, ErrReadOnlySubWallet
	}
	remaining := sub.Balance.Sub(amount)
	if remaining.IsNegative() {
		return store.SubWallet{}, ErrInsufficientBalance
	}
	return s.apply(ctx, tx, sub, amount.Neg(), remaining, reference, description)
}

// SetBalance overwrites a sub-wallet balance. This is the sync path for
// read-only gateway-mirrored rails and the admin correction path.
func (s *WalletService) SetBalance(ctx context.Context, subWalletID string, balance decimal.Decimal, description string) (store.SubWallet, error) {
	if balance.IsNegative() {
		return store.SubWallet{}, ErrInvalidAmount
	}
	var updated store.SubWallet
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		sub, err := s.wallets.SubWalletForUpdate(ctx, tx, subWalletID)
		if err != nil {
			return err
		}
		updated, err = s.apply(ctx, tx, sub, balance.Sub(sub.Balance), balance, "", description)
		return err
	})
	return updated, err
}

func (s *WalletService) apply(ctx context.Context, tx store.Tx, sub store.SubWallet, delta, balanceAfter decimal.Decimal, reference, description string) (store.SubWallet, error) {
	if err := s.wallets.UpdateSubWalletBalance(ctx, tx, sub.ID, balanceAfter); err != nil {
		return store.SubWallet{}, err
	}
	if err := s.entries.Insert(ctx, tx, store.WalletEntryInput{
		ID:           uuid.NewString(),
		SubWalletID:  sub.ID,
		Amount:       delta,
		BalanceAfter: balanceAfter,
		Reference:    reference,
		Description:  description,
	}); err != nil {
		return store.SubWallet{}, err
	}
	if err := s.wallets.RecomputeWalletTotal(ctx, tx, sub.WalletID); err != nil {
		return store.SubWallet{}, err
	}
	sub.Balance = balanceAfter
	if s.hub != nil {
		s.hub.BroadcastBalance(sub.CountryISO, websocket.BalanceUpdate{
			SubWalletID: sub.ID,
			CountryISO:  sub.CountryISO,
			Currency:    sub.Currency,
			Balance:     sub.Balance.String(),
		})
	}
	return sub, nil
}

// SyncReadOnly overwrites every gateway-mirrored sub-wallet from the
// gateway's own balance report. Per-rail failures are logged and skipped.
func (s *WalletService) SyncReadOnly(ctx context.Context) (int, error) {
	rows, err := s.wallets.ListReadOnly(ctx)
	if err != nil {
		return 0, err
	}
	synced := 0
	for _, sub := range rows {
		if sub.Gateway == "" {
			continue
		}
		client, err := s.gateways.Get(sub.Gateway)
		if err != nil {
			s.logger.Warn().Err(err).Str("sub_wallet", sub.ID).Msg("sync skipped")
			continue
		}
		balance, err := client.Balance(ctx, sub.Currency)
		if err != nil {
			s.logger.Warn().Err(err).Str("sub_wallet", sub.ID).Msg("gateway balance unavailable")
			continue
		}
		if !balance.Valid {
			continue
		}
		if _, err := s.SetBalance(ctx, sub.ID, balance.Decimal, "gateway balance sync"); err != nil {
			s.logger.Error().Err(err).Str("sub_wallet", sub.ID).Msg("sync write failed")
			continue
		}
		synced++
	}
	return synced, nil
}
