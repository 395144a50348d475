package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

// ParseAmount parses a positive monetary amount. Transfers are priced in
// major units; anything finer than 1e-4 is rejected as noise.
func ParseAmount(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.Exponent() < -4 {
		return decimal.Zero, ErrTooManyDecimals
	}
	return amount, nil
}

// ParseRate parses a positive rate or percentage with up to six decimals.
func ParseRate(input string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(input))
	if err != nil || rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidAmount
	}
	if rate.Exponent() < -6 {
		return decimal.Zero, ErrTooManyDecimals
	}
	return rate, nil
}

// Format renders an amount with banker's rounding at two decimals for
// human-facing output. Internal math keeps full precision.
func Format(value decimal.Decimal) string {
	return value.StringFixedBank(2)
}
