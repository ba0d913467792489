package settlement

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aqqutelabs/gotoken-ledger/internal/config"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/account"
	ledgerdomain "github.com/aqqutelabs/gotoken-ledger/internal/domain/ledger"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
	"github.com/aqqutelabs/gotoken-ledger/internal/gateway"
	"github.com/aqqutelabs/gotoken-ledger/internal/ledger"
	"github.com/aqqutelabs/gotoken-ledger/internal/testutil"
)

type reconcilerFixture struct {
	reconciler *Reconciler
	accounts   *testutil.MockAccountRepo
	entries    *testutil.MockLedgerRepo
	gateway    *testutil.MockGateway
}

func newReconcilerFixture() *reconcilerFixture {
	accounts := new(testutil.MockAccountRepo)
	entries := new(testutil.MockLedgerRepo)
	gw := new(testutil.MockGateway)

	accounts.On("WithTx", mock.Anything).Return(accounts).Maybe()
	entries.On("WithTx", mock.Anything).Return(entries).Maybe()

	ledgerSvc := ledger.NewService(testutil.NewTestLogger(), testutil.FakeTxRunner{}, accounts, entries, testutil.NewTestOracle(nil))
	cfg := &config.ReconcilerConfig{
		PollingInterval: time.Minute,
		BatchSize:       50,
		MinAge:          10 * time.Minute,
	}
	return &reconcilerFixture{
		reconciler: NewReconciler(cfg, entries, ledgerSvc, gw, testutil.NewTestLogger()),
		accounts:   accounts,
		entries:    entries,
		gateway:    gw,
	}
}

func TestReconciler_ReconcileBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("SettlesEntryConfirmedByGateway", func(t *testing.T) {
		f := newReconcilerFixture()
		acct := &account.Account{ID: uuid.New(), FiatCurrency: "USD"}
		entry := pendingWithdrawal(acct, "pp-1")

		f.entries.On("ListPendingOlderThan", mock.Anything, mock.AnythingOfType("time.Time"), 50).
			Return([]*ledgerdomain.Entry{entry}, nil)
		f.gateway.On("Verify", mock.Anything, "pp-1").
			Return(&gateway.TransferResult{ExternalRef: "pp-1", Status: gateway.StatusSuccess}, nil)
		f.entries.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)
		f.entries.On("UpdateStatus", mock.Anything, entry.ID, shared.EntryStatusCompleted, "pp-1", "").Return(nil)

		err := f.reconciler.reconcileBatch(ctx)

		require.NoError(t, err)
		assert.Equal(t, shared.EntryStatusCompleted, entry.Status)
		f.gateway.AssertExpectations(t)
	})

	t.Run("ReversesEntryFailedAtGateway", func(t *testing.T) {
		f := newReconcilerFixture()
		acct := &account.Account{
			ID:           uuid.New(),
			Balance:      decimal.NewFromInt(69),
			FiatCurrency: "USD",
			Version:      1,
		}
		entry := pendingWithdrawal(acct, "pp-2")

		f.entries.On("ListPendingOlderThan", mock.Anything, mock.AnythingOfType("time.Time"), 50).
			Return([]*ledgerdomain.Entry{entry}, nil)
		f.gateway.On("Verify", mock.Anything, "pp-2").
			Return(&gateway.TransferResult{ExternalRef: "pp-2", Status: gateway.StatusFailed, FailureReason: "expired"}, nil)
		f.entries.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)
		f.accounts.On("LockForUpdate", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("Update", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil)
		f.entries.On("Create", mock.Anything, mock.AnythingOfType("*ledger.Entry")).Return(nil)
		f.entries.On("UpdateStatus", mock.Anything, entry.ID, shared.EntryStatusFailed, "pp-2", "expired").Return(nil)

		err := f.reconciler.reconcileBatch(ctx)

		require.NoError(t, err)
		assert.True(t, acct.Balance.Equal(decimal.NewFromInt(100)), "got %s", acct.Balance)
		assert.Equal(t, shared.EntryStatusFailed, entry.Status)
	})

	t.Run("ReversesEntryUnknownToGateway", func(t *testing.T) {
		f := newReconcilerFixture()
		acct := &account.Account{
			ID:           uuid.New(),
			Balance:      decimal.NewFromInt(69),
			FiatCurrency: "USD",
			Version:      1,
		}
		// No external reference yet, so verification uses our entry ID
		entry := pendingWithdrawal(acct, "")

		f.entries.On("ListPendingOlderThan", mock.Anything, mock.AnythingOfType("time.Time"), 50).
			Return([]*ledgerdomain.Entry{entry}, nil)
		f.gateway.On("Verify", mock.Anything, entry.ID.String()).
			Return(nil, gateway.GatewayError{StatusCode: http.StatusNotFound, Message: "transfer not found"})
		f.entries.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)
		f.accounts.On("LockForUpdate", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("Update", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil)
		f.entries.On("Create", mock.Anything, mock.AnythingOfType("*ledger.Entry")).Return(nil)
		f.entries.On("UpdateStatus", mock.Anything, entry.ID, shared.EntryStatusFailed, "", "transfer not found at gateway").Return(nil)

		err := f.reconciler.reconcileBatch(ctx)

		require.NoError(t, err)
		assert.True(t, acct.Balance.Equal(decimal.NewFromInt(100)), "Funds return when the gateway never saw the transfer")
	})

	t.Run("StillPendingAtGatewayIsLeftAlone", func(t *testing.T) {
		f := newReconcilerFixture()
		acct := &account.Account{ID: uuid.New(), FiatCurrency: "USD"}
		entry := pendingWithdrawal(acct, "pp-4")

		f.entries.On("ListPendingOlderThan", mock.Anything, mock.AnythingOfType("time.Time"), 50).
			Return([]*ledgerdomain.Entry{entry}, nil)
		f.gateway.On("Verify", mock.Anything, "pp-4").
			Return(&gateway.TransferResult{ExternalRef: "pp-4", Status: gateway.StatusPending}, nil)

		err := f.reconciler.reconcileBatch(ctx)

		require.NoError(t, err)
		assert.Equal(t, shared.EntryStatusPending, entry.Status)
		f.entries.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		f := newReconcilerFixture()
		f.entries.On("ListPendingOlderThan", mock.Anything, mock.AnythingOfType("time.Time"), 50).
			Return([]*ledgerdomain.Entry{}, nil)

		err := f.reconciler.reconcileBatch(ctx)

		require.NoError(t, err)
		f.gateway.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})
}
