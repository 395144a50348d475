package handlers

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"remit/internal/money"
	"remit/internal/store"
)

func parseAmount(raw string) (decimal.Decimal, error) {
	return money.ParseAmount(raw)
}

func (h *Handler) countryByISO(ctx context.Context, iso string) (store.Country, error) {
	return h.countries.GetByISO(ctx, strings.ToUpper(strings.TrimSpace(iso)))
}
