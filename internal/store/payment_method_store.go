package store

import (
	"context"

	"github.com/shopspring/decimal"
)

type PaymentMethodStore struct {
	db DB
}

type PaymentMethod struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Kind     string `db:"kind" json:"kind"`
	IsGlobal bool   `db:"is_global" json:"is_global"`
}

// CountryPaymentMethod is one payment rail in one country. APIConfig is an
// opaque blob handed to the gateway client untouched.
type CountryPaymentMethod struct {
	ID              string              `db:"id" json:"id"`
	CountryID       string              `db:"country_id" json:"country_id"`
	PaymentMethodID string              `db:"payment_method_id" json:"payment_method_id"`
	MethodName      string              `db:"method_name" json:"method_name"`
	MethodKind      string              `db:"method_kind" json:"method_kind"`
	FeeOverride     decimal.NullDecimal `db:"fee_override" json:"fee_override"`
	MinAmount       decimal.NullDecimal `db:"min_amount" json:"min_amount"`
	MaxAmount       decimal.NullDecimal `db:"max_amount" json:"max_amount"`
	IsActive        bool                `db:"is_active" json:"is_active"`
	IsAutomatic     bool                `db:"is_automatic" json:"is_automatic"`
	Gateway         string              `db:"gateway" json:"gateway"`
	APIConfig       string              `db:"api_config" json:"-"`
}

func NewPaymentMethodStore(db DB) *PaymentMethodStore {
	return &PaymentMethodStore{db: db}
}

const countryMethodColumns = `
	cpm.id, cpm.country_id, cpm.payment_method_id,
	pm.name AS method_name, pm.kind AS method_kind,
	cpm.fee_override, cpm.min_amount, cpm.max_amount,
	cpm.is_active, cpm.is_automatic,
	COALESCE(cpm.gateway, '') AS gateway,
	COALESCE(cpm.api_config, '') AS api_config`

func (s *PaymentMethodStore) List(ctx context.Context) ([]PaymentMethod, error) {
	var rows []PaymentMethod
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, kind, is_global
		FROM payment_methods
		ORDER BY name
	`)
	return rows, err
}

func (s *PaymentMethodStore) CountryMethod(ctx context.Context, id string) (CountryPaymentMethod, error) {
	var row CountryPaymentMethod
	err := s.db.GetContext(ctx, &row, `
		SELECT `+countryMethodColumns+`
		FROM country_payment_methods cpm
		JOIN payment_methods pm ON pm.id = cpm.payment_method_id
		WHERE cpm.id = $1
	`, id)
	return row, err
}

func (s *PaymentMethodStore) ActiveByCountry(ctx context.Context, countryID string) ([]CountryPaymentMethod, error) {
	var rows []CountryPaymentMethod
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+countryMethodColumns+`
		FROM country_payment_methods cpm
		JOIN payment_methods pm ON pm.id = cpm.payment_method_id
		WHERE cpm.country_id = $1 AND cpm.is_active = TRUE
		ORDER BY pm.name
	`, countryID)
	return rows, err
}
