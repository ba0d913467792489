package conversion

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqqutelabs/gotoken-ledger/internal/config"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stubSource returns canned fiat rates keyed by "FROM/TO"
type stubSource struct {
	rates map[string]decimal.Decimal
	err   error
}

func (s *stubSource) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	if s.err != nil {
		return decimal.Zero, s.err
	}
	rate, ok := s.rates[from+"/"+to]
	if !ok {
		return decimal.Zero, errors.New("pair not found")
	}
	return rate, nil
}

func newTestOracle(source RateSource) *Oracle {
	return NewOracle(newTestLogger(), &config.RatesConfig{
		TokenRateUSD: decimal.RequireFromString("0.000024"),
		DefaultFiat:  "USD",
	}, source)
}

func TestOracle_Rate(t *testing.T) {
	ctx := context.Background()

	t.Run("IdentityPair", func(t *testing.T) {
		oracle := newTestOracle(&stubSource{err: errors.New("should not be called")})

		rate, err := oracle.Rate(ctx, "USD", "USD")

		require.NoError(t, err)
		assert.True(t, rate.Equal(decimal.NewFromInt(1)))
	})

	t.Run("TokenToUSD", func(t *testing.T) {
		oracle := newTestOracle(&stubSource{err: errors.New("should not be called")})

		rate, err := oracle.Rate(ctx, shared.TokenCurrency, "USD")

		require.NoError(t, err)
		assert.True(t, rate.Equal(decimal.RequireFromString("0.000024")), "got %s", rate)
	})

	t.Run("USDToToken", func(t *testing.T) {
		oracle := newTestOracle(&stubSource{err: errors.New("should not be called")})

		rate, err := oracle.Rate(ctx, "USD", shared.TokenCurrency)

		require.NoError(t, err)
		expected := decimal.NewFromInt(1).Div(decimal.RequireFromString("0.000024"))
		assert.True(t, rate.Equal(expected), "got %s want %s", rate, expected)
	})

	t.Run("TokenToOtherFiatGoesThroughUSD", func(t *testing.T) {
		oracle := newTestOracle(&stubSource{rates: map[string]decimal.Decimal{
			"USD/NGN": decimal.NewFromInt(1500),
		}})

		rate, err := oracle.Rate(ctx, shared.TokenCurrency, "NGN")

		require.NoError(t, err)
		expected := decimal.RequireFromString("0.000024").Mul(decimal.NewFromInt(1500))
		assert.True(t, rate.Equal(expected), "got %s want %s", rate, expected)
	})

	t.Run("OtherFiatToTokenGoesThroughUSD", func(t *testing.T) {
		oracle := newTestOracle(&stubSource{rates: map[string]decimal.Decimal{
			"NGN/USD": decimal.RequireFromString("0.00066"),
		}})

		rate, err := oracle.Rate(ctx, "NGN", shared.TokenCurrency)

		require.NoError(t, err)
		expected := decimal.RequireFromString("0.00066").Div(decimal.RequireFromString("0.000024"))
		assert.True(t, rate.Equal(expected), "got %s want %s", rate, expected)
	})

	t.Run("FiatPairDelegatesToSource", func(t *testing.T) {
		oracle := newTestOracle(&stubSource{rates: map[string]decimal.Decimal{
			"USD/EUR": decimal.RequireFromString("0.92"),
		}})

		rate, err := oracle.Rate(ctx, "USD", "EUR")

		require.NoError(t, err)
		assert.True(t, rate.Equal(decimal.RequireFromString("0.92")))
	})

	t.Run("SourceFailure", func(t *testing.T) {
		oracle := newTestOracle(&stubSource{err: errors.New("upstream down")})

		_, err := oracle.Rate(ctx, "USD", "EUR")

		var rateErr ErrRateUnavailable
		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, "USD", rateErr.From)
		assert.Equal(t, "EUR", rateErr.To)
	})

	t.Run("NonPositiveRateRejected", func(t *testing.T) {
		oracle := newTestOracle(&stubSource{rates: map[string]decimal.Decimal{
			"USD/EUR": decimal.Zero,
		}})

		_, err := oracle.Rate(ctx, "USD", "EUR")

		var rateErr ErrRateUnavailable
		assert.ErrorAs(t, err, &rateErr)
	})
}

func TestOracle_Convert(t *testing.T) {
	ctx := context.Background()

	t.Run("TokenAmountToUSD", func(t *testing.T) {
		oracle := newTestOracle(&stubSource{})

		value, err := oracle.Convert(ctx, decimal.NewFromInt(50), shared.TokenCurrency, "USD")

		require.NoError(t, err)
		assert.True(t, value.Equal(decimal.RequireFromString("0.0012")), "got %s", value)
	})

	t.Run("IdentityReturnsAmountUnchanged", func(t *testing.T) {
		oracle := newTestOracle(&stubSource{err: errors.New("should not be called")})

		amount := decimal.RequireFromString("12.345")
		value, err := oracle.Convert(ctx, amount, "NGN", "NGN")

		require.NoError(t, err)
		assert.True(t, value.Equal(amount))
	})

	t.Run("PropagatesRateError", func(t *testing.T) {
		oracle := newTestOracle(&stubSource{err: errors.New("upstream down")})

		_, err := oracle.Convert(ctx, decimal.NewFromInt(10), "NGN", "EUR")

		var rateErr ErrRateUnavailable
		assert.ErrorAs(t, err, &rateErr)
	})
}
