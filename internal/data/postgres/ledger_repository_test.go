package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqqutelabs/gotoken-ledger/internal/domain/ledger"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var entryColumnNames = []string{
	"id", "account_id", "kind", "amount_token", "amount_fiat", "fiat_currency", "fee",
	"status", "external_ref", "related_id", "related_type", "details", "failure_reason", "created_at", "processed_at",
}

func entryRow(e *ledger.Entry) *pgxmock.Rows {
	return pgxmock.NewRows(entryColumnNames).AddRow(
		e.ID, e.AccountID, e.Kind, e.AmountToken, e.AmountFiat, e.FiatCurrency, e.Fee,
		e.Status, nullable(e.ExternalRef), e.RelatedID, nullable(string(e.RelatedType)),
		[]byte(nil), nullable(e.FailureReason), e.CreatedAt, e.ProcessedAt,
	)
}

func pendingEntry() *ledger.Entry {
	return &ledger.Entry{
		ID:          uuid.New(),
		AccountID:   uuid.New(),
		Kind:        shared.EntryKindWithdrawal,
		AmountToken: decimal.NewFromInt(-30),
		Fee:         decimal.NewFromInt(1),
		Status:      shared.EntryStatusPending,
		CreatedAt:   time.Now(),
	}
}

func TestLedgerRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	entry := pendingEntry()

	query := `
		INSERT INTO ledger_entries \(id, account_id, kind, amount_token, amount_fiat, fiat_currency, fee,
		status, external_ref, related_id, related_type, details, failure_reason, created_at, processed_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11, \$12, \$13, \$14, \$15\)
	`

	args := []interface{}{
		entry.ID, entry.AccountID, entry.Kind, entry.AmountToken, entry.AmountFiat,
		entry.FiatCurrency, entry.Fee, entry.Status, nullable(entry.ExternalRef),
		entry.RelatedID, nullable(string(entry.RelatedType)), []byte(nil),
		nullable(entry.FailureReason), entry.CreatedAt, entry.ProcessedAt,
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(args...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, entry)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate external ref", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(args...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ledger_entries_external_ref_key"})

		err := repo.Create(ctx, entry)
		var dupErr ledger.ErrDuplicateExternalRef
		assert.ErrorAs(t, err, &dupErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(args...).
			WillReturnError(dbErr)

		err := repo.Create(ctx, entry)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create ledger entry")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	entry := pendingEntry()

	query := `
		SELECT id, account_id, kind, amount_token, amount_fiat, fiat_currency, fee,
		status, external_ref, related_id, related_type, details, failure_reason, created_at, processed_at
		FROM ledger_entries WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(entry.ID).WillReturnRows(entryRow(entry))

		got, err := repo.GetByID(ctx, entry.ID)
		assert.NoError(t, err)
		assert.Equal(t, entry, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(entry.ID).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, entry.ID)
		assert.Nil(t, got)
		var notFoundErr ledger.ErrEntryNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, entry.ID, notFoundErr.EntryID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_GetByExternalRef(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	entry := pendingEntry()
	entry.ExternalRef = "pp-515"

	query := `
		SELECT id, account_id, kind, amount_token, amount_fiat, fiat_currency, fee,
		status, external_ref, related_id, related_type, details, failure_reason, created_at, processed_at
		FROM ledger_entries WHERE external_ref = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(entry.ExternalRef).WillReturnRows(entryRow(entry))

		got, err := repo.GetByExternalRef(ctx, entry.ExternalRef)
		assert.NoError(t, err)
		assert.Equal(t, entry, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("pp-unknown").WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByExternalRef(ctx, "pp-unknown")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty ref", func(t *testing.T) {
		got, err := repo.GetByExternalRef(ctx, "")
		assert.Error(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	entry := pendingEntry()

	query := `
		UPDATE ledger_entries
		SET status = \$1,
		external_ref = COALESCE\(\$2, external_ref\),
		failure_reason = \$3,
		processed_at = NOW\(\)
		WHERE id = \$4 AND status = 'pending'
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("completed", nullable("pp-515"), nullable(""), entry.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateStatus(ctx, entry.ID, shared.EntryStatusCompleted, "pp-515", "")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already terminal", func(t *testing.T) {
		settled := pendingEntry()
		settled.ID = entry.ID
		settled.Status = shared.EntryStatusCompleted

		mock.ExpectExec(query).
			WithArgs("failed", nullable(""), nullable("gateway declined"), entry.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(`SELECT .+ FROM ledger_entries WHERE id = \$1`).
			WithArgs(entry.ID).
			WillReturnRows(entryRow(settled))

		err := repo.UpdateStatus(ctx, entry.ID, shared.EntryStatusFailed, "", "gateway declined")
		var terminalErr ledger.ErrAlreadyTerminal
		assert.ErrorAs(t, err, &terminalErr)
		assert.Equal(t, shared.EntryStatusCompleted, terminalErr.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing entry", func(t *testing.T) {
		missingID := uuid.New()
		mock.ExpectExec(query).
			WithArgs("completed", nullable(""), nullable(""), missingID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(`SELECT .+ FROM ledger_entries WHERE id = \$1`).
			WithArgs(missingID).
			WillReturnError(pgx.ErrNoRows)

		err := repo.UpdateStatus(ctx, missingID, shared.EntryStatusCompleted, "", "")
		var notFoundErr ledger.ErrEntryNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_SetExternalRef(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	entryID := uuid.New()

	query := `UPDATE ledger_entries SET external_ref = \$1 WHERE id = \$2`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("pp-515", entryID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.SetExternalRef(ctx, entryID, "pp-515")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("entry missing", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("pp-515", entryID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.SetExternalRef(ctx, entryID, "pp-515")
		var notFoundErr ledger.ErrEntryNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty ref", func(t *testing.T) {
		err := repo.SetExternalRef(ctx, entryID, "")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_ExistsByKindAndRelated(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	accountID := uuid.New()
	relatedID := uuid.New()

	query := `
		SELECT EXISTS \(
		SELECT 1 FROM ledger_entries
		WHERE account_id = \$1 AND kind = \$2 AND related_id = \$3
		\)
	`

	t.Run("exists", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(accountID, "referral_bonus", relatedID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.ExistsByKindAndRelated(ctx, accountID, shared.EntryKindReferralBonus, relatedID)
		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(accountID, "referral_bonus", relatedID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := repo.ExistsByKindAndRelated(ctx, accountID, shared.EntryKindReferralBonus, relatedID)
		assert.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_ListPendingOlderThan(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	cutoff := time.Now().Add(-10 * time.Minute)

	first := pendingEntry()
	second := pendingEntry()

	query := `
		SELECT id, account_id, kind, amount_token, amount_fiat, fiat_currency, fee,
		status, external_ref, related_id, related_type, details, failure_reason, created_at, processed_at
		FROM ledger_entries
		WHERE status = 'pending' AND created_at < \$1
		ORDER BY created_at ASC
		LIMIT \$2
	`

	t.Run("returns batch", func(t *testing.T) {
		rows := pgxmock.NewRows(entryColumnNames).
			AddRow(
				first.ID, first.AccountID, first.Kind, first.AmountToken, first.AmountFiat, first.FiatCurrency, first.Fee,
				first.Status, nullable(first.ExternalRef), first.RelatedID, nullable(string(first.RelatedType)),
				[]byte(nil), nullable(first.FailureReason), first.CreatedAt, first.ProcessedAt,
			).
			AddRow(
				second.ID, second.AccountID, second.Kind, second.AmountToken, second.AmountFiat, second.FiatCurrency, second.Fee,
				second.Status, nullable(second.ExternalRef), second.RelatedID, nullable(string(second.RelatedType)),
				[]byte(nil), nullable(second.FailureReason), second.CreatedAt, second.ProcessedAt,
			)

		mock.ExpectQuery(query).WithArgs(cutoff, 50).WillReturnRows(rows)

		entries, err := repo.ListPendingOlderThan(ctx, cutoff, 50)
		assert.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, first.ID, entries[0].ID)
		assert.Equal(t, second.ID, entries[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty batch", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(cutoff, 50).WillReturnRows(pgxmock.NewRows(entryColumnNames))

		entries, err := repo.ListPendingOlderThan(ctx, cutoff, 50)
		assert.NoError(t, err)
		assert.Empty(t, entries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
