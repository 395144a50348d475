package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"remit/internal/db"
	"remit/internal/gateway"
	"remit/internal/store"
)

const (
	StatusPending   = "PENDING"
	StatusPaid      = "PAID"
	StatusApproved  = "APPROVED"
	StatusCompleted = "COMPLETED"
	StatusRejected  = "REJECTED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

var (
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrVerificationMismatch  = errors.New("gateway verification mismatch")
	ErrGatewayUnavailable    = errors.New("gateway unavailable")
	ErrAmountBelowMinimum    = errors.New("amount below corridor minimum")
	ErrAmountAboveMaximum    = errors.New("amount above corridor maximum")
	ErrReceiverMethodMissing = errors.New("receiver payment method is required")
)

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	GetByID(ctx context.Context, id string) (store.Transaction, error)
	GetByReference(ctx context.Context, reference string) (store.Transaction, error)
	GetByGatewayID(ctx context.Context, gatewayName, gatewayTxID string) (store.Transaction, error)
	UpdateStatus(ctx context.Context, tx store.Execer, id, expected, next string) (int64, error)
	SetGatewayID(ctx context.Context, tx store.Execer, id, gatewayName, gatewayTxID string) error
}

type EventStore interface {
	Append(ctx context.Context, tx store.Execer, transactionID, kind, detail string) error
}

// Ledger is the slice of the wallet service the state machine needs:
// tx-scoped credit/debit so money moves in the same database transaction as
// the status compare-and-set.
type Ledger interface {
	EnsureSubWallet(ctx context.Context, countryPaymentMethodID string) (store.SubWallet, error)
	CreditTx(ctx context.Context, tx store.Tx, subWalletID string, amount decimal.Decimal, reference, description string) (store.SubWallet, error)
	DebitTx(ctx context.Context, tx store.Tx, subWalletID string, amount decimal.Decimal, reference, description string) (store.SubWallet, error)
}

type Pricer interface {
	Quote(ctx context.Context, senderCountryID, receiverCountryID string, amount decimal.Decimal) (PriceQuote, error)
}

// TransactionService is the transaction state machine. Transitions are
// linearized by a compare-and-set on the persisted status: of two racing
// webhook deliveries only the first to observe PENDING settles, the other
// observes a non-PENDING row and no-ops.
type TransactionService struct {
	txRunner     db.TxRunner
	transactions TransactionStore
	events       EventStore
	ledger       Ledger
	pricer       Pricer
	methods      MethodStore
	countries    CountryStore
	gateways     Gateways
	logger       zerolog.Logger
}

func NewTransactionService(txRunner db.TxRunner, transactions TransactionStore, events EventStore, ledger Ledger, pricer Pricer, methods MethodStore, countries CountryStore, gateways Gateways, logger zerolog.Logger) *TransactionService {
	return &TransactionService{
		txRunner:     txRunner,
		transactions: transactions,
		events:       events,
		ledger:       ledger,
		pricer:       pricer,
		methods:      methods,
		countries:    countries,
		gateways:     gateways,
		logger:       logger,
	}
}

type CreateTransferRequest struct {
	SenderName        string
	SenderPhone       string
	ReceiverName      string
	ReceiverPhone     string
	SenderCountryID   string
	ReceiverCountryID string
	Amount            decimal.Decimal
	SenderMethodID    string
	ReceiverMethodID  string
	GatewayTxID       string
}

// Create takes a transfer in. The quote is snapshotted onto the row at
// creation time and never re-derived.
func (s *TransactionService) Create(ctx context.Context, req CreateTransferRequest) (store.Transaction, error) {
	if req.ReceiverMethodID == "" {
		return store.Transaction{}, ErrReceiverMethodMissing
	}
	quote, err := s.pricer.Quote(ctx, req.SenderCountryID, req.ReceiverCountryID, req.Amount)
	if err != nil {
		return store.Transaction{}, err
	}
	if req.Amount.LessThan(quote.MinAmount) {
		return store.Transaction{}, ErrAmountBelowMinimum
	}
	if quote.MaxAmount.Valid && req.Amount.GreaterThan(quote.MaxAmount.Decimal) {
		return store.Transaction{}, ErrAmountAboveMaximum
	}
	senderMethod, err := s.methods.CountryMethod(ctx, req.SenderMethodID)
	if err != nil {
		return store.Transaction{}, err
	}
	if _, err := s.methods.CountryMethod(ctx, req.ReceiverMethodID); err != nil {
		return store.Transaction{}, err
	}

	id := uuid.NewString()
	reference := newReference()
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:                id,
			Reference:         reference,
			SenderName:        req.SenderName,
			SenderPhone:       req.SenderPhone,
			ReceiverName:      req.ReceiverName,
			ReceiverPhone:     req.ReceiverPhone,
			SenderCountryID:   req.SenderCountryID,
			ReceiverCountryID: req.ReceiverCountryID,
			Amount:            req.Amount,
			BaseFee:           quote.BaseFee,
			PercentageFee:     quote.PercentageFee,
			TotalFees:         quote.TotalFees,
			ExchangeRate:      quote.ExchangeRate,
			Margin:            quote.Margin,
			FinalExchangeRate: quote.FinalExchangeRate,
			TotalAmount:       quote.TotalPaid,
			ReceivedAmount:    quote.ReceivedAmount,
			SenderMethodID:    req.SenderMethodID,
			ReceiverMethodID:  req.ReceiverMethodID,
			Status:            StatusPending,
			Gateway:           senderMethod.Gateway,
			GatewayTxID:       req.GatewayTxID,
		}); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, id, store.EventCreated, eventDetail(map[string]string{
			"amount":      req.Amount.String(),
			"total_fees":  quote.TotalFees.String(),
			"total_paid":  quote.TotalPaid.String(),
			"rate_source": quote.Source,
		}))
	})
	if err != nil {
		return store.Transaction{}, err
	}
	return s.transactions.GetByID(ctx, id)
}

// AttachGatewayTransaction stores the gateway-side correlation id once the
// hosted checkout has been initiated.
func (s *TransactionService) AttachGatewayTransaction(ctx context.Context, id, gatewayName, gatewayTxID string) error {
	txn, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return s.notFound(err)
	}
	if txn.Status != StatusPending {
		return ErrInvalidTransition
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.transactions.SetGatewayID(ctx, tx, id, gatewayName, gatewayTxID)
	})
}

// RecordGatewayNotification reconciles one webhook or return-URL callback.
// It is idempotent: a transaction past PENDING short-circuits with no
// mutation and no duplicate credit, however many times the gateway fires.
func (s *TransactionService) RecordGatewayNotification(ctx context.Context, gatewayName, gatewayTxID, rawStatus string, amount decimal.Decimal, currency string) (store.Transaction, error) {
	txn, err := s.transactions.GetByGatewayID(ctx, gatewayName, gatewayTxID)
	if err != nil {
		return store.Transaction{}, s.notFound(err)
	}
	if txn.Status != StatusPending {
		s.logger.Debug().
			Str("reference", txn.Reference).
			Str("status", txn.Status).
			Msg("duplicate gateway notification ignored")
		return txn, nil
	}

	if err := s.appendEvent(ctx, txn.ID, store.EventGatewayNotified, eventDetail(map[string]string{
		"gateway":    gatewayName,
		"raw_status": rawStatus,
		"amount":     amount.String(),
		"currency":   currency,
	})); err != nil {
		return txn, err
	}

	switch normalizeGatewayStatus(rawStatus) {
	case gateway.StatusCancelled:
		return s.closePending(ctx, txn, StatusCancelled, store.EventCancelled, "gateway reported "+rawStatus)
	case gateway.StatusFailed:
		return s.closePending(ctx, txn, StatusFailed, store.EventFailed, "gateway reported "+rawStatus)
	case gateway.StatusSuccessful:
		return s.settlePending(ctx, txn)
	default:
		// still pending at the gateway; the sweeper will follow up
		return txn, nil
	}
}

// settlePending verifies a success claim against the gateway's own
// verification endpoint before any money moves. Verification is fail-closed:
// a mismatched amount or status forces FAILED, an unreachable gateway leaves
// the row PENDING for the sweeper.
func (s *TransactionService) settlePending(ctx context.Context, txn store.Transaction) (store.Transaction, error) {
	client, err := s.gateways.Get(txn.Gateway)
	if err != nil {
		s.logger.Error().Err(err).Str("reference", txn.Reference).Msg("no client for gateway")
		return txn, err
	}
	verification, err := client.Verify(ctx, txn.GatewayTxID)
	if err != nil {
		s.logger.Warn().Err(err).Str("reference", txn.Reference).Msg("verification unavailable, will retry on sweep")
		return txn, nil
	}
	if verification.Status == gateway.StatusPending {
		return txn, nil
	}

	senderCountry, err := s.countries.GetByID(ctx, txn.SenderCountryID)
	if err != nil {
		return txn, err
	}
	// overpay within rounding is tolerated, underpay never is
	amountOK := verification.Amount.GreaterThanOrEqual(txn.TotalAmount)
	currencyOK := verification.Currency == "" || verification.Currency == senderCountry.CurrencyCode
	if verification.Status != gateway.StatusSuccessful || !amountOK || !currencyOK {
		detail := eventDetail(map[string]string{
			"verified_status":   string(verification.Status),
			"verified_amount":   verification.Amount.String(),
			"verified_currency": verification.Currency,
			"expected_amount":   txn.TotalAmount.String(),
			"expected_currency": senderCountry.CurrencyCode,
		})
		updated, err := s.closePending(ctx, txn, StatusFailed, store.EventVerificationMismatch, detail)
		if err != nil {
			return txn, err
		}
		return updated, ErrVerificationMismatch
	}

	sub, err := s.ledger.EnsureSubWallet(ctx, txn.ReceiverMethodID)
	if err != nil {
		return txn, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.transactions.UpdateStatus(ctx, tx, txn.ID, StatusPending, StatusPaid)
		if err != nil {
			return err
		}
		if rows == 0 {
			// lost the race to a concurrent delivery
			return nil
		}
		if err := s.events.Append(ctx, tx, txn.ID, store.EventVerified, eventDetail(map[string]string{
			"verified_amount": verification.Amount.String(),
		})); err != nil {
			return err
		}
		if err := s.events.Append(ctx, tx, txn.ID, store.EventPaid, ""); err != nil {
			return err
		}
		if sub.ReadOnly {
			// balance lives at the gateway; the sync mirrors it
			return nil
		}
		_, err = s.ledger.CreditTx(ctx, tx, sub.ID, txn.ReceivedAmount, txn.Reference, "settlement credit")
		return err
	})
	if err != nil {
		return txn, err
	}
	return s.transactions.GetByID(ctx, txn.ID)
}

// Approve moves a PAID transaction forward. The gateway is re-checked
// first; a now-failed verification downgrades PAID to FAILED and flags the
// credited balance for manual reversal. Funds may already be disbursed, so
// the ledger is never reversed automatically.
func (s *TransactionService) Approve(ctx context.Context, id, actor string) (store.Transaction, error) {
	txn, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return store.Transaction{}, s.notFound(err)
	}
	if txn.Status != StatusPaid {
		return txn, ErrInvalidTransition
	}

	if txn.GatewayTxID != "" {
		client, err := s.gateways.Get(txn.Gateway)
		if err != nil {
			return txn, err
		}
		verification, err := client.Verify(ctx, txn.GatewayTxID)
		if err != nil {
			return txn, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		if verification.Status == gateway.StatusFailed || verification.Status == gateway.StatusCancelled {
			err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
				rows, err := s.transactions.UpdateStatus(ctx, tx, txn.ID, StatusPaid, StatusFailed)
				if err != nil || rows == 0 {
					return err
				}
				if err := s.events.Append(ctx, tx, txn.ID, store.EventVerificationMismatch, "post-hoc verification returned "+string(verification.Status)); err != nil {
					return err
				}
				return s.events.Append(ctx, tx, txn.ID, store.EventManualReversalRequired, "settlement credit needs manual reversal")
			})
			if err != nil {
				return txn, err
			}
			updated, _ := s.transactions.GetByID(ctx, txn.ID)
			return updated, ErrVerificationMismatch
		}
	}

	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.transactions.UpdateStatus(ctx, tx, txn.ID, StatusPaid, StatusApproved)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidTransition
		}
		return s.events.Append(ctx, tx, txn.ID, store.EventApproved, "approved by "+actor)
	})
	if err != nil {
		return txn, err
	}

	txn, err = s.transactions.GetByID(ctx, txn.ID)
	if err != nil {
		return txn, err
	}
	method, err := s.methods.CountryMethod(ctx, txn.ReceiverMethodID)
	if err != nil {
		s.logger.Warn().Err(err).Str("reference", txn.Reference).Msg("receiver rail lookup failed, payout deferred")
		return txn, nil
	}
	if method.IsAutomatic {
		// approval stands even if the payout attempt fails
		if err := s.executePayout(ctx, txn, method); err != nil {
			s.logger.Warn().Err(err).Str("reference", txn.Reference).Msg("automatic payout failed, manual retry required")
			_ = s.appendEvent(ctx, txn.ID, store.EventPayoutFailed, err.Error())
			return txn, nil
		}
		return s.transactions.GetByID(ctx, txn.ID)
	}
	return txn, nil
}

// ForcePayout retries disbursement for an APPROVED transaction.
func (s *TransactionService) ForcePayout(ctx context.Context, id, actor string) (store.Transaction, error) {
	txn, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return store.Transaction{}, s.notFound(err)
	}
	if txn.Status != StatusApproved {
		return txn, ErrInvalidTransition
	}
	method, err := s.methods.CountryMethod(ctx, txn.ReceiverMethodID)
	if err != nil {
		return txn, err
	}
	if err := s.executePayout(ctx, txn, method); err != nil {
		_ = s.appendEvent(ctx, txn.ID, store.EventPayoutFailed, err.Error())
		return txn, err
	}
	return s.transactions.GetByID(ctx, txn.ID)
}

func (s *TransactionService) Reject(ctx context.Context, id, actor, reason string) (store.Transaction, error) {
	txn, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return store.Transaction{}, s.notFound(err)
	}
	if txn.Status != StatusPending && txn.Status != StatusPaid {
		return txn, ErrInvalidTransition
	}
	wasPaid := txn.Status == StatusPaid
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.transactions.UpdateStatus(ctx, tx, txn.ID, txn.Status, StatusRejected)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidTransition
		}
		if err := s.events.Append(ctx, tx, txn.ID, store.EventRejected, "rejected by "+actor+": "+reason); err != nil {
			return err
		}
		if wasPaid {
			return s.events.Append(ctx, tx, txn.ID, store.EventManualReversalRequired, "settlement credit needs manual reversal")
		}
		return nil
	})
	if err != nil {
		return txn, err
	}
	return s.transactions.GetByID(ctx, txn.ID)
}

// ReverifyPending is the sweeper's entry point: same verification and
// settlement path as a live webhook, same idempotency.
func (s *TransactionService) ReverifyPending(ctx context.Context, id string) (store.Transaction, error) {
	txn, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return store.Transaction{}, s.notFound(err)
	}
	if txn.Status != StatusPending || txn.GatewayTxID == "" {
		return txn, nil
	}
	return s.settlePending(ctx, txn)
}

// Expire force-fails a pending transaction past the expiry threshold.
// Returns false when a concurrent transition already resolved it.
func (s *TransactionService) Expire(ctx context.Context, id, reason string) (bool, error) {
	var expired bool
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.transactions.UpdateStatus(ctx, tx, id, StatusPending, StatusFailed)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		expired = true
		return s.events.Append(ctx, tx, id, store.EventExpired, reason)
	})
	return expired, err
}

func (s *TransactionService) GetByReference(ctx context.Context, reference string) (store.Transaction, error) {
	txn, err := s.transactions.GetByReference(ctx, reference)
	if err != nil {
		return store.Transaction{}, s.notFound(err)
	}
	return txn, nil
}

func (s *TransactionService) closePending(ctx context.Context, txn store.Transaction, status, eventKind, detail string) (store.Transaction, error) {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.transactions.UpdateStatus(ctx, tx, txn.ID, StatusPending, status)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		return s.events.Append(ctx, tx, txn.ID, eventKind, detail)
	})
	if err != nil {
		return txn, err
	}
	return s.transactions.GetByID(ctx, txn.ID)
}

func (s *TransactionService) executePayout(ctx context.Context, txn store.Transaction, method store.CountryPaymentMethod) error {
	sub, err := s.ledger.EnsureSubWallet(ctx, method.ID)
	if err != nil {
		return err
	}
	if !sub.ReadOnly && sub.Balance.LessThan(txn.ReceivedAmount) {
		return fmt.Errorf("%w: rail %s holds %s, payout needs %s", ErrInsufficientBalance, method.MethodName, sub.Balance, txn.ReceivedAmount)
	}
	receiverCountry, err := s.countries.GetByID(ctx, txn.ReceiverCountryID)
	if err != nil {
		return err
	}
	client, err := s.gateways.Get(method.Gateway)
	if err != nil {
		return err
	}
	if err := s.appendEvent(ctx, txn.ID, store.EventPayoutAttempted, "via "+method.MethodName); err != nil {
		return err
	}
	result, err := client.Payout(ctx, method.APIConfig, gateway.PayoutRequest{
		Reference:     txn.Reference,
		ReceiverName:  txn.ReceiverName,
		ReceiverPhone: txn.ReceiverPhone,
		Amount:        txn.ReceivedAmount,
		Currency:      receiverCountry.CurrencyCode,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if !result.Success {
		return errors.New("gateway declined payout: " + result.Message)
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.transactions.UpdateStatus(ctx, tx, txn.ID, StatusApproved, StatusCompleted)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidTransition
		}
		if !sub.ReadOnly {
			if _, err := s.ledger.DebitTx(ctx, tx, sub.ID, txn.ReceivedAmount, txn.Reference, "payout disbursement"); err != nil {
				return err
			}
		}
		return s.events.Append(ctx, tx, txn.ID, store.EventCompleted, "provider reference "+result.ProviderReference)
	})
}

func (s *TransactionService) appendEvent(ctx context.Context, transactionID, kind, detail string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.events.Append(ctx, tx, transactionID, kind, detail)
	})
}

func (s *TransactionService) notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTransactionNotFound
	}
	return err
}

func normalizeGatewayStatus(raw string) gateway.Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "successful", "success", "completed", "accepted":
		return gateway.StatusSuccessful
	case "failed", "error", "declined", "refused":
		return gateway.StatusFailed
	case "cancelled", "canceled", "aborted":
		return gateway.StatusCancelled
	default:
		return gateway.StatusPending
	}
}

func newReference() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "RMT-" + raw[:10] + "-" + fmt.Sprint(time.Now().Year())
}

func eventDetail(fields map[string]string) string {
	raw, _ := json.Marshal(fields)
	return string(raw)
}
