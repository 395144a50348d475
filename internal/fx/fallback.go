package fx

import "github.com/shopspring/decimal"

// Hand-maintained approximations, refreshed occasionally by ops. Only used
// when both rate APIs and the cache are unavailable; a degraded quote is
// still better than no quote.
var usdPer = map[string]string{
	"USD": "1",
	"EUR": "0.92",
	"GBP": "0.79",
	"CAD": "1.36",
	"XOF": "600",
	"XAF": "600",
	"NGN": "1550",
	"GHS": "15.2",
	"KES": "129",
	"MAD": "9.9",
}

// staticRate triangulates through USD when no direct pair exists. Unknown
// currencies collapse to 1 so the last line of defense can never raise.
func staticRate(fromCurrency, toCurrency string) decimal.Decimal {
	fromUSD, okFrom := usdPer[fromCurrency]
	toUSD, okTo := usdPer[toCurrency]
	if !okFrom || !okTo {
		return decimal.NewFromInt(1)
	}
	from, err := decimal.NewFromString(fromUSD)
	if err != nil || from.IsZero() {
		return decimal.NewFromInt(1)
	}
	to, err := decimal.NewFromString(toUSD)
	if err != nil {
		return decimal.NewFromInt(1)
	}
	// units of `to` per unit of `from`, via USD
	return to.Div(from).RoundBank(6)
}
