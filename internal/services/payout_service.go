package services

import (
	"context"

	"github.com/shopspring/decimal"

	"remit/internal/store"
)

type RailStore interface {
	ActiveRailsByCountry(ctx context.Context, countryID string) ([]store.RailOption, error)
}

// PayoutService answers "which receiver-side rails can fund this payout".
// It is a projection over the ledger: no mutation, no caching.
type PayoutService struct {
	rails RailStore
}

func NewPayoutService(rails RailStore) *PayoutService {
	return &PayoutService{rails: rails}
}

func (s *PayoutService) AvailableReceiverMethods(ctx context.Context, receiverCountryID string, amount decimal.Decimal) ([]store.RailOption, error) {
	rails, err := s.rails.ActiveRailsByCountry(ctx, receiverCountryID)
	if err != nil {
		return nil, err
	}
	options := make([]store.RailOption, 0, len(rails))
	for _, rail := range rails {
		if rail.Balance.LessThan(amount) {
			continue
		}
		if rail.MinAmount.Valid && amount.LessThan(rail.MinAmount.Decimal) {
			continue
		}
		if rail.MaxAmount.Valid && amount.GreaterThan(rail.MaxAmount.Decimal) {
			continue
		}
		options = append(options, rail)
	}
	return options, nil
}
