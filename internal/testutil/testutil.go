// Package testutil provides shared test doubles for the service-layer
// test suites.
package testutil

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/aqqutelabs/gotoken-ledger/internal/config"
	"github.com/aqqutelabs/gotoken-ledger/internal/conversion"
)

// NewTestLogger returns a logger that only surfaces errors so test
// output stays readable
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// FakeTxRunner runs the transactional function with a nil transaction.
// Mock repositories pair with it by returning themselves from WithTx.
type FakeTxRunner struct{}

func (FakeTxRunner) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

// StubRateSource serves fiat rates from a map keyed "FROM/TO". A nil map
// makes every lookup fail.
type StubRateSource struct {
	Rates map[string]decimal.Decimal
}

func (s *StubRateSource) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	rate, ok := s.Rates[from+"/"+to]
	if !ok {
		return decimal.Zero, errors.New("pair not found")
	}
	return rate, nil
}

// NewTestOracle builds an oracle with the production token peg and the
// given fiat rates
func NewTestOracle(rates map[string]decimal.Decimal) *conversion.Oracle {
	return conversion.NewOracle(NewTestLogger(), &config.RatesConfig{
		TokenRateUSD: decimal.RequireFromString("0.000024"),
		DefaultFiat:  "USD",
	}, &StubRateSource{Rates: rates})
}
