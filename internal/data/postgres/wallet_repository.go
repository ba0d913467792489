package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aqqutelabs/gotoken-ledger/internal/domain/wallet"
	"github.com/aqqutelabs/gotoken-ledger/internal/platform/persistence"
)

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet reference-data repository
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateBeneficiary stores a new beneficiary
func (r *WalletRepository) CreateBeneficiary(ctx context.Context, b *wallet.Beneficiary) error {
	detailsJSON, err := json.Marshal(b.Details)
	if err != nil {
		return fmt.Errorf("failed to encode beneficiary details: %w", err)
	}

	query := `
		INSERT INTO beneficiaries (id, account_id, name, type, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.querier.Exec(ctx, query, b.ID, b.AccountID, b.Name, b.Type, detailsJSON, b.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create beneficiary", "error", err)
		return fmt.Errorf("failed to create beneficiary: %w", err)
	}

	return nil
}

// GetBeneficiary retrieves a beneficiary by its natural key. Returns
// nil, nil when none matches.
func (r *WalletRepository) GetBeneficiary(ctx context.Context, accountID uuid.UUID, name, beneficiaryType string) (*wallet.Beneficiary, error) {
	query := `
		SELECT id, account_id, name, type, details, created_at
		FROM beneficiaries
		WHERE account_id = $1 AND name = $2 AND type = $3
	`

	b, err := r.scanBeneficiary(r.querier.QueryRow(ctx, query, accountID, name, beneficiaryType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get beneficiary", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get beneficiary: %w", err)
	}

	return b, nil
}

// ListBeneficiaries retrieves all beneficiaries for an account
func (r *WalletRepository) ListBeneficiaries(ctx context.Context, accountID uuid.UUID) ([]*wallet.Beneficiary, error) {
	query := `
		SELECT id, account_id, name, type, details, created_at
		FROM beneficiaries
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.querier.Query(ctx, query, accountID)
	if err != nil {
		r.logger.Error("Failed to list beneficiaries", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list beneficiaries: %w", err)
	}
	defer rows.Close()

	var beneficiaries []*wallet.Beneficiary
	for rows.Next() {
		b, err := r.scanBeneficiary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan beneficiary: %w", err)
		}
		beneficiaries = append(beneficiaries, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read beneficiaries: %w", err)
	}

	return beneficiaries, nil
}

func (r *WalletRepository) scanBeneficiary(row pgx.Row) (*wallet.Beneficiary, error) {
	var (
		b           wallet.Beneficiary
		detailsJSON []byte
	)
	if err := row.Scan(&b.ID, &b.AccountID, &b.Name, &b.Type, &detailsJSON, &b.CreatedAt); err != nil {
		return nil, err
	}
	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &b.Details); err != nil {
			return nil, fmt.Errorf("failed to decode beneficiary details: %w", err)
		}
	}
	return &b, nil
}

// CreatePaymentLink stores a new payment link
func (r *WalletRepository) CreatePaymentLink(ctx context.Context, l *wallet.PaymentLink) error {
	query := `
		INSERT INTO payment_links (id, account_id, name, description, currency, link_code, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query, l.ID, l.AccountID, l.Name, l.Description, l.Currency, l.LinkCode, l.Active, l.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create payment link", "error", err)
		return fmt.Errorf("failed to create payment link: %w", err)
	}

	return nil
}

// GetPaymentLinkByCode retrieves an active payment link by its code
func (r *WalletRepository) GetPaymentLinkByCode(ctx context.Context, linkCode string) (*wallet.PaymentLink, error) {
	query := `
		SELECT id, account_id, name, description, currency, link_code, active, created_at
		FROM payment_links
		WHERE link_code = $1 AND active
	`

	var l wallet.PaymentLink
	err := r.querier.QueryRow(ctx, query, linkCode).Scan(
		&l.ID, &l.AccountID, &l.Name, &l.Description, &l.Currency, &l.LinkCode, &l.Active, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrPaymentLinkNotFound{LinkCode: linkCode}
		}
		r.logger.Error("Failed to get payment link", "link_code", linkCode, "error", err)
		return nil, fmt.Errorf("failed to get payment link: %w", err)
	}

	return &l, nil
}

// LinkCodeExists reports whether any link (active or not) uses the code
func (r *WalletRepository) LinkCodeExists(ctx context.Context, linkCode string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM payment_links WHERE link_code = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, linkCode).Scan(&exists); err != nil {
		r.logger.Error("Failed to check link code", "link_code", linkCode, "error", err)
		return false, fmt.Errorf("failed to check link code: %w", err)
	}

	return exists, nil
}
