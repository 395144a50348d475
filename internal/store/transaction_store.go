package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStore struct {
	db DB
}

type Transaction struct {
	ID                string          `db:"id" json:"id"`
	Reference         string          `db:"reference" json:"reference"`
	SenderName        string          `db:"sender_name" json:"sender_name"`
	SenderPhone       string          `db:"sender_phone" json:"sender_phone"`
	ReceiverName      string          `db:"receiver_name" json:"receiver_name"`
	ReceiverPhone     string          `db:"receiver_phone" json:"receiver_phone"`
	SenderCountryID   string          `db:"sender_country_id" json:"sender_country_id"`
	ReceiverCountryID string          `db:"receiver_country_id" json:"receiver_country_id"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	BaseFee           decimal.Decimal `db:"base_fee" json:"base_fee"`
	PercentageFee     decimal.Decimal `db:"percentage_fee" json:"percentage_fee"`
	TotalFees         decimal.Decimal `db:"total_fees" json:"total_fees"`
	ExchangeRate      decimal.Decimal `db:"exchange_rate" json:"exchange_rate"`
	Margin            decimal.Decimal `db:"margin" json:"margin"`
	FinalExchangeRate decimal.Decimal `db:"final_exchange_rate" json:"final_exchange_rate"`
	TotalAmount       decimal.Decimal `db:"total_amount" json:"total_amount"`
	ReceivedAmount    decimal.Decimal `db:"received_amount" json:"received_amount"`
	SenderMethodID    string          `db:"sender_method_id" json:"sender_method_id"`
	ReceiverMethodID  string          `db:"receiver_method_id" json:"receiver_method_id"`
	Status            string          `db:"status" json:"status"`
	Gateway           string          `db:"gateway" json:"gateway"`
	GatewayTxID       string          `db:"gateway_tx_id" json:"gateway_tx_id"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

type TransactionInput struct {
	ID                string
	Reference         string
	SenderName        string
	SenderPhone       string
	ReceiverName      string
	ReceiverPhone     string
	SenderCountryID   string
	ReceiverCountryID string
	Amount            decimal.Decimal
	BaseFee           decimal.Decimal
	PercentageFee     decimal.Decimal
	TotalFees         decimal.Decimal
	ExchangeRate      decimal.Decimal
	Margin            decimal.Decimal
	FinalExchangeRate decimal.Decimal
	TotalAmount       decimal.Decimal
	ReceivedAmount    decimal.Decimal
	SenderMethodID    string
	ReceiverMethodID  string
	Status            string
	Gateway           string
	GatewayTxID       string
}

// StalePending is a pending transaction picked up by the reconciliation
// sweep, with the sender rail's automation flag joined in.
type StalePending struct {
	Transaction
	SenderAutomatic bool `db:"sender_automatic"`
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func transactionColumns(prefix string) string {
	p := prefix
	return p + `id, ` + p + `reference, ` + p + `sender_name, ` + p + `sender_phone, ` +
		p + `receiver_name, ` + p + `receiver_phone, ` +
		p + `sender_country_id, ` + p + `receiver_country_id, ` +
		p + `amount, ` + p + `base_fee, ` + p + `percentage_fee, ` + p + `total_fees, ` +
		p + `exchange_rate, ` + p + `margin, ` + p + `final_exchange_rate, ` +
		p + `total_amount, ` + p + `received_amount, ` +
		p + `sender_method_id, COALESCE(` + p + `receiver_method_id, '') AS receiver_method_id, ` +
		p + `status, COALESCE(` + p + `gateway, '') AS gateway, ` +
		`COALESCE(` + p + `gateway_tx_id, '') AS gateway_tx_id, ` +
		p + `created_at, ` + p + `updated_at`
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, reference, sender_name, sender_phone, receiver_name, receiver_phone,
			sender_country_id, receiver_country_id,
			amount, base_fee, percentage_fee, total_fees,
			exchange_rate, margin, final_exchange_rate, total_amount, received_amount,
			sender_method_id, receiver_method_id, status, gateway, gateway_tx_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NULLIF($19, ''), $20, NULLIF($21, ''), NULLIF($22, ''))
	`, input.ID, input.Reference, input.SenderName, input.SenderPhone, input.ReceiverName, input.ReceiverPhone,
		input.SenderCountryID, input.ReceiverCountryID,
		input.Amount.String(), input.BaseFee.String(), input.PercentageFee.String(), input.TotalFees.String(),
		input.ExchangeRate.String(), input.Margin.String(), input.FinalExchangeRate.String(),
		input.TotalAmount.String(), input.ReceivedAmount.String(),
		input.SenderMethodID, input.ReceiverMethodID, input.Status, input.Gateway, input.GatewayTxID)
	return err
}

func (s *TransactionStore) GetByID(ctx context.Context, id string) (Transaction, error) {
	var row Transaction
	err := s.db.GetContext(ctx, &row, `
		SELECT `+transactionColumns("")+`
		FROM transactions
		WHERE id = $1
	`, id)
	return row, err
}

func (s *TransactionStore) GetByReference(ctx context.Context, reference string) (Transaction, error) {
	var row Transaction
	err := s.db.GetContext(ctx, &row, `
		SELECT `+transactionColumns("")+`
		FROM transactions
		WHERE reference = $1
	`, reference)
	return row, err
}

func (s *TransactionStore) GetByGatewayID(ctx context.Context, gateway, gatewayTxID string) (Transaction, error) {
	var row Transaction
	err := s.db.GetContext(ctx, &row, `
		SELECT `+transactionColumns("")+`
		FROM transactions
		WHERE gateway = $1 AND gateway_tx_id = $2
	`, gateway, gatewayTxID)
	return row, err
}

// UpdateStatus is the state machine's compare-and-set: the write only lands
// if the persisted status still matches the expected precondition. The
// caller inspects rows affected to detect a lost race.
func (s *TransactionStore) UpdateStatus(ctx context.Context, tx Execer, id, expected, next string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, expected, next)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *TransactionStore) SetGatewayID(ctx context.Context, tx Execer, id, gateway, gatewayTxID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET gateway = $2, gateway_tx_id = $3, updated_at = NOW()
		WHERE id = $1
	`, id, gateway, gatewayTxID)
	return err
}

func (s *TransactionStore) ListStalePending(ctx context.Context, before time.Time) ([]StalePending, error) {
	var rows []StalePending
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns("t.")+`, cpm.is_automatic AS sender_automatic
		FROM transactions t
		JOIN country_payment_methods cpm ON cpm.id = t.sender_method_id
		WHERE t.status = 'PENDING' AND t.created_at < $1
		ORDER BY t.created_at
	`, before)
	return rows, err
}
