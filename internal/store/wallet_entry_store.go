package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// WalletEntryStore journals every sub-wallet mutation so custodial balances
// can be audited after the fact.
type WalletEntryStore struct {
	db DB
}

type WalletEntryInput struct {
	ID           string
	SubWalletID  string
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Reference    string
	Description  string
}

type WalletEntry struct {
	ID           string          `db:"id" json:"id"`
	SubWalletID  string          `db:"sub_wallet_id" json:"sub_wallet_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balance_after"`
	Reference    string          `db:"reference" json:"reference"`
	Description  string          `db:"description" json:"description"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

func NewWalletEntryStore(db DB) *WalletEntryStore {
	return &WalletEntryStore{db: db}
}

func (s *WalletEntryStore) Insert(ctx context.Context, tx Execer, input WalletEntryInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_entries (id, sub_wallet_id, amount, balance_after, reference, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, input.ID, input.SubWalletID, input.Amount.String(), input.BalanceAfter.String(), input.Reference, input.Description)
	return err
}

func (s *WalletEntryStore) ListBySubWallet(ctx context.Context, subWalletID string, limit, offset int) ([]WalletEntry, error) {
	var rows []WalletEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, sub_wallet_id, amount, balance_after, reference, description, created_at
		FROM wallet_entries
		WHERE sub_wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, subWalletID, limit, offset)
	return rows, err
}
