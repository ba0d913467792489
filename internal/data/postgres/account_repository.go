// Package postgres provides PostgreSQL implementations of the domain
// repositories. Accounts, ledger entries, task attempts, and wallet
// reference data share one database so multi-record operations can commit
// in a single transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/aqqutelabs/gotoken-ledger/internal/domain/account"
	"github.com/aqqutelabs/gotoken-ledger/internal/platform/persistence"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so multiple repository
// calls commit atomically
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const accountColumns = `id, username, email, password_hash, balance, fiat_equivalent, fiat_currency,
		referral_code, referred_by, referral_count, bonus_earned, email_verified,
		activity_visible, data_sharing, version, created_at, updated_at`

func scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.Username,
		&acc.Email,
		&acc.PasswordHash,
		&acc.Balance,
		&acc.FiatEquivalent,
		&acc.FiatCurrency,
		&acc.ReferralCode,
		&acc.ReferredBy,
		&acc.ReferralCount,
		&acc.BonusEarned,
		&acc.EmailVerified,
		&acc.ActivityVisible,
		&acc.DataSharing,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// Create stores a new account
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.Username,
		acc.Email,
		acc.PasswordHash,
		acc.Balance,
		acc.FiatEquivalent,
		acc.FiatCurrency,
		acc.ReferralCode,
		acc.ReferredBy,
		acc.ReferralCount,
		acc.BonusEarned,
		acc.EmailVerified,
		acc.ActivityVisible,
		acc.DataSharing,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// GetByReferralCode retrieves an account by its referral code. Returns
// nil, nil when no account carries the code.
func (r *AccountRepository) GetByReferralCode(ctx context.Context, code string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE referral_code = $1`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get account by referral code", "code", code, "error", err)
		return nil, fmt.Errorf("failed to get account by referral code: %w", err)
	}

	return acc, nil
}

// Update persists an account using optimistic locking on the version column
func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET username = $1, email = $2, password_hash = $3, balance = $4, fiat_equivalent = $5,
		    fiat_currency = $6, email_verified = $7, activity_visible = $8, data_sharing = $9,
		    version = $10, updated_at = $11
		WHERE id = $12 AND version = $13
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Username,
		acc.Email,
		acc.PasswordHash,
		acc.Balance,
		acc.FiatEquivalent,
		acc.FiatCurrency,
		acc.EmailVerified,
		acc.ActivityVisible,
		acc.DataSharing,
		acc.Version,
		acc.UpdatedAt,
		acc.ID,
		acc.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the account and returns its
// current state. Must run inside a transaction; the lock holds until commit.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return acc, nil
}

// AddReferralStats bumps the referral counters in place. Counters are not
// part of the balance invariant, so no version check is needed.
func (r *AccountRepository) AddReferralStats(ctx context.Context, id uuid.UUID, bonus decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET referral_count = referral_count + 1, bonus_earned = bonus_earned + $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, bonus, id)
	if err != nil {
		r.logger.Error("Failed to update referral stats", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update referral stats: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: id}
	}

	return nil
}

// CountReferred counts accounts referred by the given account
func (r *AccountRepository) CountReferred(ctx context.Context, referrerID uuid.UUID, verifiedOnly bool) (int64, error) {
	query := `SELECT COUNT(*) FROM accounts WHERE referred_by = $1`
	if verifiedOnly {
		query += ` AND email_verified`
	}

	var count int64
	if err := r.querier.QueryRow(ctx, query, referrerID).Scan(&count); err != nil {
		r.logger.Error("Failed to count referred accounts", "referrer_id", referrerID.String(), "error", err)
		return 0, fmt.Errorf("failed to count referred accounts: %w", err)
	}

	return count, nil
}
