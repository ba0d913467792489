package conversion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/aqqutelabs/gotoken-ledger/internal/config"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
)

const pivotCurrency = "USD"

// ErrRateUnavailable is returned when no exchange rate can be resolved
// for a currency pair
type ErrRateUnavailable struct {
	From string
	To   string
}

func (e ErrRateUnavailable) Error() string {
	return fmt.Sprintf("exchange rate unavailable for %s/%s", e.From, e.To)
}

// RateSource resolves fiat exchange rates. Rate returns how many units
// of the target currency one unit of the source currency is worth.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Oracle converts amounts between GoToken and fiat currencies. The token
// is pegged to USD through configuration; fiat pairs come from the rate
// source.
type Oracle struct {
	source       RateSource
	tokenRateUSD decimal.Decimal
	logger       *slog.Logger
}

// NewOracle creates a conversion oracle backed by the given rate source
func NewOracle(logger *slog.Logger, cfg *config.RatesConfig, source RateSource) *Oracle {
	return &Oracle{
		source:       source,
		tokenRateUSD: cfg.TokenRateUSD,
		logger:       logger,
	}
}

// Rate resolves the exchange rate for a currency pair. Either side may be
// the token currency.
func (o *Oracle) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	switch {
	case from == shared.TokenCurrency && to == pivotCurrency:
		return o.tokenRateUSD, nil
	case from == pivotCurrency && to == shared.TokenCurrency:
		return decimal.NewFromInt(1).Div(o.tokenRateUSD), nil
	case from == shared.TokenCurrency:
		usdRate, err := o.fiatRate(ctx, pivotCurrency, to)
		if err != nil {
			return decimal.Zero, err
		}
		return o.tokenRateUSD.Mul(usdRate), nil
	case to == shared.TokenCurrency:
		usdRate, err := o.fiatRate(ctx, from, pivotCurrency)
		if err != nil {
			return decimal.Zero, err
		}
		return usdRate.Div(o.tokenRateUSD), nil
	default:
		return o.fiatRate(ctx, from, to)
	}
}

// Convert returns the value of amount expressed in the target currency
func (o *Oracle) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}

	rate, err := o.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	return amount.Mul(rate), nil
}

func (o *Oracle) fiatRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	rate, err := o.source.Rate(ctx, from, to)
	if err != nil {
		o.logger.Warn("Rate source lookup failed",
			"from", from,
			"to", to,
			"error", err)
		return decimal.Zero, ErrRateUnavailable{From: from, To: to}
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrRateUnavailable{From: from, To: to}
	}
	return rate, nil
}
