package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"remit/internal/services"
	"remit/internal/store"
)

type CountryStore interface {
	GetByISO(ctx context.Context, isoCode string) (store.Country, error)
	List(ctx context.Context) ([]store.Country, error)
}

type MethodStore interface {
	List(ctx context.Context) ([]store.PaymentMethod, error)
	ActiveByCountry(ctx context.Context, countryID string) ([]store.CountryPaymentMethod, error)
}

type WalletStore interface {
	ListSummaries(ctx context.Context) ([]store.WalletSummary, error)
}

type EntryStore interface {
	ListBySubWallet(ctx context.Context, subWalletID string, limit, offset int) ([]store.WalletEntry, error)
}

type EventStore interface {
	ListByTransaction(ctx context.Context, transactionID string) ([]store.TransactionEvent, error)
}

type PricingService interface {
	Quote(ctx context.Context, senderCountryID, receiverCountryID string, amount decimal.Decimal) (services.PriceQuote, error)
}

type TransferService interface {
	Create(ctx context.Context, req services.CreateTransferRequest) (store.Transaction, error)
	GetByReference(ctx context.Context, reference string) (store.Transaction, error)
	AttachGatewayTransaction(ctx context.Context, id, gatewayName, gatewayTxID string) error
	RecordGatewayNotification(ctx context.Context, gatewayName, gatewayTxID, rawStatus string, amount decimal.Decimal, currency string) (store.Transaction, error)
	Approve(ctx context.Context, id, actor string) (store.Transaction, error)
	Reject(ctx context.Context, id, actor, reason string) (store.Transaction, error)
	ForcePayout(ctx context.Context, id, actor string) (store.Transaction, error)
}

type RailSelector interface {
	AvailableReceiverMethods(ctx context.Context, receiverCountryID string, amount decimal.Decimal) ([]store.RailOption, error)
}

type LedgerService interface {
	SetBalance(ctx context.Context, subWalletID string, balance decimal.Decimal, description string) (store.SubWallet, error)
	SyncReadOnly(ctx context.Context) (int, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (services.SweepReport, error)
}
