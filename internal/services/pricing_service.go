package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"remit/internal/store"
)

// Quote sources, in precedence order.
const (
	SourceCorridor = "corridor"
	SourceCountry  = "country"
	SourceGlobal   = "global"
	SourceDefault  = "default"
)

// Hard-coded last-resort pricing. Missing configuration degrades the quote,
// it never blocks one.
var (
	defaultBaseFee       = decimal.NewFromInt(5)
	defaultPercentageFee = decimal.NewFromInt(2)
	defaultMargin        = decimal.Zero
	defaultMinAmount     = decimal.NewFromInt(1)

	oneHundred = decimal.NewFromInt(100)
)

type RateConfigStore interface {
	ActiveCorridor(ctx context.Context, senderCountryID, receiverCountryID string) (store.RateRecord, error)
	ActiveCountryRate(ctx context.Context, receiverCountryID string) (store.RateRecord, error)
	DefaultRate(ctx context.Context) (store.RateRecord, error)
}

type CountryStore interface {
	GetByID(ctx context.Context, countryID string) (store.Country, error)
}

type RateProvider interface {
	Rate(ctx context.Context, fromCurrency, toCurrency string) decimal.Decimal
}

type PricingService struct {
	rates     RateConfigStore
	countries CountryStore
	fx        RateProvider
	logger    zerolog.Logger
}

func NewPricingService(rates RateConfigStore, countries CountryStore, fx RateProvider, logger zerolog.Logger) *PricingService {
	return &PricingService{rates: rates, countries: countries, fx: fx, logger: logger}
}

type PriceQuote struct {
	BaseFee             decimal.Decimal     `json:"base_fee"`
	PercentageFee       decimal.Decimal     `json:"percentage_fee"`
	PercentageFeeAmount decimal.Decimal     `json:"percentage_fee_amount"`
	TotalFees           decimal.Decimal     `json:"total_fees"`
	ExchangeRate        decimal.Decimal     `json:"exchange_rate"`
	Margin              decimal.Decimal     `json:"margin"`
	FinalExchangeRate   decimal.Decimal     `json:"final_exchange_rate"`
	ReceivedAmount      decimal.Decimal     `json:"received_amount"`
	TotalPaid           decimal.Decimal     `json:"total_paid"`
	MarginRevenue       decimal.Decimal     `json:"margin_revenue"`
	MinAmount           decimal.Decimal     `json:"min_amount"`
	MaxAmount           decimal.NullDecimal `json:"max_amount"`
	Source              string              `json:"source"`
	SenderCurrency      string              `json:"sender_currency"`
	ReceiverCurrency    string              `json:"receiver_currency"`
}

// Quote prices a transfer. Rate configuration is resolved corridor → receiver
// country → global default, with field-level inheritance: a corridor that
// sets only base_fee still inherits percentage_fee from its linked default
// rate, not from whatever tier lost the precedence race.
func (s *PricingService) Quote(ctx context.Context, senderCountryID, receiverCountryID string, amount decimal.Decimal) (PriceQuote, error) {
	sender, err := s.countries.GetByID(ctx, senderCountryID)
	if err != nil {
		return PriceQuote{}, err
	}
	receiver, err := s.countries.GetByID(ctx, receiverCountryID)
	if err != nil {
		return PriceQuote{}, err
	}

	record, source := s.resolveRecord(ctx, senderCountryID, receiverCountryID)

	baseFee := pick(record.BaseFee, record.LinkedBaseFee, defaultBaseFee)
	percentageFee := pick(record.PercentageFee, record.LinkedPercentageFee, defaultPercentageFee)
	margin := pick(record.Margin, record.LinkedMargin, defaultMargin)
	minAmount := pick(record.MinAmount, record.LinkedMinAmount, defaultMinAmount)
	maxAmount := pickNull(record.MaxAmount, record.LinkedMaxAmount)

	marketRate := s.fx.Rate(ctx, sender.CurrencyCode, receiver.CurrencyCode)
	// margin shaves the rate; it never improves it
	finalRate := marketRate.Mul(decimal.NewFromInt(1).Sub(margin.Div(oneHundred))).RoundBank(6)

	percentageFeeAmount := amount.Mul(percentageFee).Div(oneHundred)
	totalFees := baseFee.Add(percentageFeeAmount)

	return PriceQuote{
		BaseFee:             baseFee,
		PercentageFee:       percentageFee,
		PercentageFeeAmount: percentageFeeAmount,
		TotalFees:           totalFees,
		ExchangeRate:        marketRate,
		Margin:              margin,
		FinalExchangeRate:   finalRate,
		ReceivedAmount:      amount.Mul(finalRate),
		TotalPaid:           amount.Add(totalFees),
		MarginRevenue:       marketRate.Sub(finalRate).Mul(amount),
		MinAmount:           minAmount,
		MaxAmount:           maxAmount,
		Source:              source,
		SenderCurrency:      sender.CurrencyCode,
		ReceiverCurrency:    receiver.CurrencyCode,
	}, nil
}

func (s *PricingService) resolveRecord(ctx context.Context, senderCountryID, receiverCountryID string) (store.RateRecord, string) {
	record, err := s.rates.ActiveCorridor(ctx, senderCountryID, receiverCountryID)
	if err == nil {
		return record, SourceCorridor
	}
	s.warnUnlessMissing(err, "corridor rate lookup failed")

	record, err = s.rates.ActiveCountryRate(ctx, receiverCountryID)
	if err == nil {
		return record, SourceCountry
	}
	s.warnUnlessMissing(err, "country rate lookup failed")

	record, err = s.rates.DefaultRate(ctx)
	if err == nil {
		return record, SourceGlobal
	}
	s.warnUnlessMissing(err, "default rate lookup failed")

	return store.RateRecord{}, SourceDefault
}

func (s *PricingService) warnUnlessMissing(err error, msg string) {
	if errors.Is(err, sql.ErrNoRows) {
		return
	}
	s.logger.Warn().Err(err).Msg(msg)
}

// pick resolves one field through the inheritance chain. NullDecimal keeps
// "unset" distinct from zero, so a configured zero fee stays zero.
func pick(own, linked decimal.NullDecimal, fallback decimal.Decimal) decimal.Decimal {
	if own.Valid {
		return own.Decimal
	}
	if linked.Valid {
		return linked.Decimal
	}
	return fallback
}

func pickNull(own, linked decimal.NullDecimal) decimal.NullDecimal {
	if own.Valid {
		return own
	}
	return linked
}
