package store

import (
	"context"

	"github.com/shopspring/decimal"
)

type RateStore struct {
	db DB
}

// RateRecord is one pricing tier row together with the fields of its linked
// default rate. A NullDecimal with Valid=false means "unset, inherit" and
// is never conflated with zero.
type RateRecord struct {
	ID            string              `db:"id"`
	BaseFee       decimal.NullDecimal `db:"base_fee"`
	PercentageFee decimal.NullDecimal `db:"percentage_fee"`
	Margin        decimal.NullDecimal `db:"exchange_rate_margin"`
	MinAmount     decimal.NullDecimal `db:"min_amount"`
	MaxAmount     decimal.NullDecimal `db:"max_amount"`

	LinkedBaseFee       decimal.NullDecimal `db:"linked_base_fee"`
	LinkedPercentageFee decimal.NullDecimal `db:"linked_percentage_fee"`
	LinkedMargin        decimal.NullDecimal `db:"linked_exchange_rate_margin"`
	LinkedMinAmount     decimal.NullDecimal `db:"linked_min_amount"`
	LinkedMaxAmount     decimal.NullDecimal `db:"linked_max_amount"`
}

func NewRateStore(db DB) *RateStore {
	return &RateStore{db: db}
}

func (s *RateStore) ActiveCorridor(ctx context.Context, senderCountryID, receiverCountryID string) (RateRecord, error) {
	var row RateRecord
	err := s.db.GetContext(ctx, &row, `
		SELECT c.id, c.base_fee, c.percentage_fee, c.exchange_rate_margin, c.min_amount, c.max_amount,
		       d.base_fee AS linked_base_fee,
		       d.percentage_fee AS linked_percentage_fee,
		       d.exchange_rate_margin AS linked_exchange_rate_margin,
		       d.min_amount AS linked_min_amount,
		       d.max_amount AS linked_max_amount
		FROM transfer_corridors c
		LEFT JOIN transfer_rates d ON d.id = c.transfer_rate_id
		WHERE c.sender_country_id = $1 AND c.receiver_country_id = $2 AND c.is_active = TRUE
	`, senderCountryID, receiverCountryID)
	return row, err
}

func (s *RateStore) ActiveCountryRate(ctx context.Context, receiverCountryID string) (RateRecord, error) {
	var row RateRecord
	err := s.db.GetContext(ctx, &row, `
		SELECT r.id, r.base_fee, r.percentage_fee, r.exchange_rate_margin, r.min_amount, r.max_amount,
		       d.base_fee AS linked_base_fee,
		       d.percentage_fee AS linked_percentage_fee,
		       d.exchange_rate_margin AS linked_exchange_rate_margin,
		       d.min_amount AS linked_min_amount,
		       d.max_amount AS linked_max_amount
		FROM country_transfer_rates r
		LEFT JOIN transfer_rates d ON d.id = r.transfer_rate_id
		WHERE r.country_id = $1 AND r.is_active = TRUE
	`, receiverCountryID)
	return row, err
}

func (s *RateStore) DefaultRate(ctx context.Context) (RateRecord, error) {
	var row RateRecord
	err := s.db.GetContext(ctx, &row, `
		SELECT id, base_fee, percentage_fee, exchange_rate_margin, min_amount, max_amount,
		       NULL::numeric AS linked_base_fee,
		       NULL::numeric AS linked_percentage_fee,
		       NULL::numeric AS linked_exchange_rate_margin,
		       NULL::numeric AS linked_min_amount,
		       NULL::numeric AS linked_max_amount
		FROM transfer_rates
		WHERE is_default = TRUE AND is_active = TRUE
	`)
	return row, err
}
