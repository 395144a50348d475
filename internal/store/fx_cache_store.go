package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type FxCacheStore struct {
	db DB
}

type CachedRate struct {
	FromCurrency string          `db:"from_currency"`
	ToCurrency   string          `db:"to_currency"`
	Rate         decimal.Decimal `db:"rate"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func NewFxCacheStore(db DB) *FxCacheStore {
	return &FxCacheStore{db: db}
}

func (s *FxCacheStore) Get(ctx context.Context, fromCurrency, toCurrency string) (CachedRate, error) {
	var row CachedRate
	err := s.db.GetContext(ctx, &row, `
		SELECT from_currency, to_currency, rate, updated_at
		FROM exchange_rate_cache
		WHERE from_currency = $1 AND to_currency = $2
	`, fromCurrency, toCurrency)
	return row, err
}

// Upsert is a single statement so a concurrent refresh can never leave a
// partially written row.
func (s *FxCacheStore) Upsert(ctx context.Context, fromCurrency, toCurrency string, rate decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchange_rate_cache (from_currency, to_currency, rate, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (from_currency, to_currency)
		DO UPDATE SET rate = EXCLUDED.rate, updated_at = NOW()
	`, fromCurrency, toCurrency, rate.String())
	return err
}
