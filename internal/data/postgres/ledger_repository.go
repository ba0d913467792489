package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aqqutelabs/gotoken-ledger/internal/domain/ledger"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
	"github.com/aqqutelabs/gotoken-ledger/internal/platform/persistence"
)

// LedgerRepository implements the ledger.Repository interface for PostgreSQL.
// Entries share the accounts database so an entry and its balance change
// commit in one transaction.
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const entryColumns = `id, account_id, kind, amount_token, amount_fiat, fiat_currency, fee,
		status, external_ref, related_id, related_type, details, failure_reason, created_at, processed_at`

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var (
		e           ledger.Entry
		externalRef *string
		relatedType *string
		reason      *string
		detailsJSON []byte
	)
	err := row.Scan(
		&e.ID,
		&e.AccountID,
		&e.Kind,
		&e.AmountToken,
		&e.AmountFiat,
		&e.FiatCurrency,
		&e.Fee,
		&e.Status,
		&externalRef,
		&e.RelatedID,
		&relatedType,
		&detailsJSON,
		&reason,
		&e.CreatedAt,
		&e.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	if externalRef != nil {
		e.ExternalRef = *externalRef
	}
	if relatedType != nil {
		e.RelatedType = shared.RelatedEntityType(*relatedType)
	}
	if reason != nil {
		e.FailureReason = *reason
	}
	if len(detailsJSON) > 0 {
		var details ledger.Details
		if err := json.Unmarshal(detailsJSON, &details); err != nil {
			return nil, fmt.Errorf("failed to decode entry details: %w", err)
		}
		e.Details = &details
	}
	return &e, nil
}

// nullable maps the empty string to SQL NULL so the sparse unique index on
// external_ref only applies to real references
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create stores a new ledger entry. Returns ErrDuplicateExternalRef when
// the sparse unique constraint on external_ref is violated.
func (r *LedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	var detailsJSON []byte
	if entry.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to encode entry details: %w", err)
		}
	}

	query := `
		INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.AccountID,
		entry.Kind,
		entry.AmountToken,
		entry.AmountFiat,
		entry.FiatCurrency,
		entry.Fee,
		entry.Status,
		nullable(entry.ExternalRef),
		entry.RelatedID,
		nullable(string(entry.RelatedType)),
		detailsJSON,
		nullable(entry.FailureReason),
		entry.CreatedAt,
		entry.ProcessedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "ledger_entries_external_ref_key" {
			return ledger.ErrDuplicateExternalRef{ExternalRef: entry.ExternalRef}
		}
		r.logger.Error("Failed to create ledger entry", "entry_id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return nil
}

// GetByID retrieves a ledger entry by its ID
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`

	entry, err := scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get ledger entry", "entry_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return entry, nil
}

// GetByExternalRef retrieves a ledger entry by its external reference.
// Returns nil, nil when no entry carries the reference.
func (r *LedgerRepository) GetByExternalRef(ctx context.Context, externalRef string) (*ledger.Entry, error) {
	if externalRef == "" {
		return nil, errors.New("external reference cannot be empty")
	}

	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE external_ref = $1`

	entry, err := scanEntry(r.querier.QueryRow(ctx, query, externalRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get ledger entry by external ref", "external_ref", externalRef, "error", err)
		return nil, fmt.Errorf("failed to get ledger entry by external ref: %w", err)
	}

	return entry, nil
}

// GetByAccountID retrieves paginated ledger entries for an account, newest
// first. An empty kind matches all kinds.
func (r *LedgerRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, kind shared.EntryKind, limit, offset int) ([]*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE account_id = $1 AND ($2 = '' OR kind = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.querier.Query(ctx, query, accountID, string(kind), limit, offset)
	if err != nil {
		r.logger.Error("Failed to get ledger entries", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger entries: %w", err)
	}

	return entries, nil
}

// CountByAccountID counts ledger entries for an account
func (r *LedgerRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID, kind shared.EntryKind) (int64, error) {
	query := `SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1 AND ($2 = '' OR kind = $2)`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID, string(kind)).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger entries", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

// ExistsByKindAndRelated reports whether the account already holds an entry
// of the kind referencing the related entity
func (r *LedgerRepository) ExistsByKindAndRelated(ctx context.Context, accountID uuid.UUID, kind shared.EntryKind, relatedID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM ledger_entries
			WHERE account_id = $1 AND kind = $2 AND related_id = $3
		)
	`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, accountID, string(kind), relatedID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check for related ledger entry",
			"account_id", accountID.String(),
			"kind", string(kind),
			"related_id", relatedID.String(),
			"error", err)
		return false, fmt.Errorf("failed to check for related ledger entry: %w", err)
	}

	return exists, nil
}

// UpdateStatus transitions an entry out of pending. The WHERE clause only
// matches pending rows, so a terminal entry is never rewritten.
func (r *LedgerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.EntryStatus, externalRef, failureReason string) error {
	query := `
		UPDATE ledger_entries
		SET status = $1,
		    external_ref = COALESCE($2, external_ref),
		    failure_reason = $3,
		    processed_at = NOW()
		WHERE id = $4 AND status = 'pending'
	`

	result, err := r.querier.Exec(ctx, query, string(status), nullable(externalRef), nullable(failureReason), id)
	if err != nil {
		r.logger.Error("Failed to update ledger entry status",
			"entry_id", id.String(),
			"status", string(status),
			"error", err)
		return fmt.Errorf("failed to update ledger entry status: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish missing entry from already-settled entry
		existing, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		return ledger.ErrAlreadyTerminal{EntryID: id, Status: existing.Status}
	}

	return nil
}

// SetExternalRef records the gateway reference on an entry without
// changing its status (asynchronous gateways return the reference first)
func (r *LedgerRepository) SetExternalRef(ctx context.Context, id uuid.UUID, externalRef string) error {
	if externalRef == "" {
		return errors.New("external reference cannot be empty")
	}

	query := `UPDATE ledger_entries SET external_ref = $1 WHERE id = $2`

	result, err := r.querier.Exec(ctx, query, externalRef, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ledger.ErrDuplicateExternalRef{ExternalRef: externalRef}
		}
		r.logger.Error("Failed to set external ref", "entry_id", id.String(), "error", err)
		return fmt.Errorf("failed to set external ref: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrEntryNotFound{EntryID: id}
	}

	return nil
}

// ListPendingOlderThan returns pending entries created before the cutoff,
// oldest first, for gateway reconciliation
func (r *LedgerRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.querier.Query(ctx, query, cutoff, limit)
	if err != nil {
		r.logger.Error("Failed to list pending ledger entries", "error", err)
		return nil, fmt.Errorf("failed to list pending ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending ledger entries: %w", err)
	}

	return entries, nil
}
