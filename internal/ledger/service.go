package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/aqqutelabs/gotoken-ledger/internal/conversion"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/account"
	domain "github.com/aqqutelabs/gotoken-ledger/internal/domain/ledger"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
	"github.com/aqqutelabs/gotoken-ledger/internal/platform/persistence"
)

// ErrUnknownExternalRef indicates a settlement for a reference no ledger
// entry carries
type ErrUnknownExternalRef struct {
	ExternalRef string
}

func (e ErrUnknownExternalRef) Error() string {
	return "no ledger entry carries external reference: " + e.ExternalRef
}

// CreditParams describes a balance increase
type CreditParams struct {
	AccountID uuid.UUID
	Kind      shared.EntryKind
	// Amount is the positive number of tokens to add
	Amount decimal.Decimal
	// Status defaults to completed when empty
	Status      shared.EntryStatus
	ExternalRef string
	RelatedID   *uuid.UUID
	RelatedType shared.RelatedEntityType
	Details     *domain.Details
}

// DebitParams describes a balance decrease. The account is charged
// Amount plus Fee.
type DebitParams struct {
	AccountID uuid.UUID
	Kind      shared.EntryKind
	Amount    decimal.Decimal
	Fee       decimal.Decimal
	// Status defaults to completed when empty. Debits over external rails
	// start pending and settle later.
	Status      shared.EntryStatus
	ExternalRef string
	RelatedID   *uuid.UUID
	RelatedType shared.RelatedEntityType
	Details     *domain.Details
}

// TransferParams describes an atomic move of tokens between two accounts.
// The sender is charged Amount plus Fee; the recipient receives Amount.
type TransferParams struct {
	FromAccountID  uuid.UUID
	ToAccountID    uuid.UUID
	Amount         decimal.Decimal
	Fee            decimal.Decimal
	DebitKind      shared.EntryKind
	DebitDetails   *domain.Details
	ReceiveDetails *domain.Details
}

// Service is the single write path to account balances. Every mutation
// locks the account row, applies the change, and records a ledger entry
// in the same transaction.
type Service struct {
	db       persistence.TxRunner
	accounts account.Repository
	entries  domain.Repository
	oracle   *conversion.Oracle
	logger   *slog.Logger
}

// NewService creates the ledger service
func NewService(logger *slog.Logger, db persistence.TxRunner, accounts account.Repository, entries domain.Repository, oracle *conversion.Oracle) *Service {
	return &Service{
		db:       db,
		accounts: accounts,
		entries:  entries,
		oracle:   oracle,
		logger:   logger,
	}
}

// Credit adds tokens to an account in its own transaction. When an
// external reference is supplied and an entry already carries it, the
// existing entry is returned and nothing changes.
func (s *Service) Credit(ctx context.Context, p CreditParams) (*domain.Entry, error) {
	if p.ExternalRef != "" {
		existing, err := s.entries.GetByExternalRef(ctx, p.ExternalRef)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.logger.Info("Skipping credit with known external reference",
				"external_ref", p.ExternalRef,
				"entry_id", existing.ID.String())
			return existing, nil
		}
	}

	var entry *domain.Entry
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		entry, txErr = s.CreditTx(ctx, tx, p)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CreditTx applies a credit inside a caller-managed transaction
func (s *Service) CreditTx(ctx context.Context, tx pgx.Tx, p CreditParams) (*domain.Entry, error) {
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, account.ErrInvalidAmount
	}

	accounts := s.accounts.WithTx(tx)
	entries := s.entries.WithTx(tx)

	acct, err := accounts.LockForUpdate(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}

	if err := acct.Credit(p.Amount); err != nil {
		return nil, err
	}
	s.refreshFiat(ctx, acct)

	if err := accounts.Update(ctx, acct); err != nil {
		return nil, err
	}

	entry := s.buildEntry(ctx, acct, p.Kind, p.Amount, decimal.Zero, p.Status, p.ExternalRef, p.RelatedID, p.RelatedType, p.Details)
	if err := entries.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Credited account",
		"account_id", acct.ID.String(),
		"entry_id", entry.ID.String(),
		"kind", string(p.Kind),
		"amount", p.Amount.String())
	return entry, nil
}

// Debit removes tokens from an account in its own transaction
func (s *Service) Debit(ctx context.Context, p DebitParams) (*domain.Entry, error) {
	var entry *domain.Entry
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		entry, txErr = s.DebitTx(ctx, tx, p)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// DebitTx applies a debit inside a caller-managed transaction. The
// sufficiency check runs under the row lock, so concurrent debits of the
// same account serialize and the balance never goes negative.
func (s *Service) DebitTx(ctx context.Context, tx pgx.Tx, p DebitParams) (*domain.Entry, error) {
	accounts := s.accounts.WithTx(tx)
	entries := s.entries.WithTx(tx)

	acct, err := accounts.LockForUpdate(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}

	if err := acct.Debit(p.Amount, p.Fee); err != nil {
		return nil, err
	}
	s.refreshFiat(ctx, acct)

	if err := accounts.Update(ctx, acct); err != nil {
		return nil, err
	}

	entry := s.buildEntry(ctx, acct, p.Kind, p.Amount.Neg(), p.Fee, p.Status, p.ExternalRef, p.RelatedID, p.RelatedType, p.Details)
	if err := entries.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Debited account",
		"account_id", acct.ID.String(),
		"entry_id", entry.ID.String(),
		"kind", string(p.Kind),
		"amount", p.Amount.String(),
		"fee", p.Fee.String())
	return entry, nil
}

// Transfer atomically moves tokens between two accounts, producing a
// debit entry for the sender and a receive entry for the recipient.
func (s *Service) Transfer(ctx context.Context, p TransferParams) (*domain.Entry, *domain.Entry, error) {
	if p.FromAccountID == p.ToAccountID {
		return nil, nil, fmt.Errorf("transfer source and destination are the same account")
	}

	var debitEntry, receiveEntry *domain.Entry
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accounts := s.accounts.WithTx(tx)
		entries := s.entries.WithTx(tx)

		// Lock in ascending ID order so concurrent opposing transfers
		// cannot deadlock
		first, second := p.FromAccountID, p.ToAccountID
		if second.String() < first.String() {
			first, second = second, first
		}
		locked := make(map[uuid.UUID]*account.Account, 2)
		for _, id := range []uuid.UUID{first, second} {
			acct, err := accounts.LockForUpdate(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = acct
		}
		sender, recipient := locked[p.FromAccountID], locked[p.ToAccountID]

		if err := sender.Debit(p.Amount, p.Fee); err != nil {
			return err
		}
		if err := recipient.Credit(p.Amount); err != nil {
			return err
		}
		s.refreshFiat(ctx, sender)
		s.refreshFiat(ctx, recipient)

		if err := accounts.Update(ctx, sender); err != nil {
			return err
		}
		if err := accounts.Update(ctx, recipient); err != nil {
			return err
		}

		recipientID := recipient.ID
		debitEntry = s.buildEntry(ctx, sender, p.DebitKind, p.Amount.Neg(), p.Fee, shared.EntryStatusCompleted, "", &recipientID, shared.RelatedEntityAccount, p.DebitDetails)
		if err := entries.Create(ctx, debitEntry); err != nil {
			return err
		}

		receiveDetails := p.ReceiveDetails
		if receiveDetails == nil {
			receiveDetails = &domain.Details{}
		}
		receiveDetails.FromUsername = sender.Username

		debitID := debitEntry.ID
		receiveEntry = s.buildEntry(ctx, recipient, shared.EntryKindReceive, p.Amount, decimal.Zero, shared.EntryStatusCompleted, "", &debitID, shared.RelatedEntityEntry, receiveDetails)
		return entries.Create(ctx, receiveEntry)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Transferred between accounts",
		"from_account_id", p.FromAccountID.String(),
		"to_account_id", p.ToAccountID.String(),
		"amount", p.Amount.String(),
		"fee", p.Fee.String())
	return debitEntry, receiveEntry, nil
}

// Settle moves a pending entry to a terminal status in its own
// transaction. Settling an entry already at the requested status is a
// no-op; any other terminal status returns ErrAlreadyTerminal.
func (s *Service) Settle(ctx context.Context, entryID uuid.UUID, status shared.EntryStatus, externalRef, failureReason string) (*domain.Entry, error) {
	var entry *domain.Entry
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		entry, txErr = s.SettleTx(ctx, tx, entryID, status, externalRef, failureReason)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// SettleTx settles an entry inside a caller-managed transaction
func (s *Service) SettleTx(ctx context.Context, tx pgx.Tx, entryID uuid.UUID, status shared.EntryStatus, externalRef, failureReason string) (*domain.Entry, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("cannot settle entry %s to non-terminal status %s", entryID, status)
	}

	entries := s.entries.WithTx(tx)

	entry, err := entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status == status {
		s.logger.Info("Skipping settlement of entry already at status",
			"entry_id", entryID.String(),
			"status", string(status))
		return entry, nil
	}

	if err := entries.UpdateStatus(ctx, entryID, status, externalRef, failureReason); err != nil {
		return nil, err
	}

	entry.Status = status
	if externalRef != "" {
		entry.ExternalRef = externalRef
	}
	entry.FailureReason = failureReason
	now := time.Now()
	entry.ProcessedAt = &now

	s.logger.Info("Settled ledger entry",
		"entry_id", entryID.String(),
		"status", string(status))
	return entry, nil
}

// SetExternalRef attaches the gateway's reference to a pending entry so
// later settlement callbacks can find it
func (s *Service) SetExternalRef(ctx context.Context, entryID uuid.UUID, externalRef string) error {
	return s.entries.SetExternalRef(ctx, entryID, externalRef)
}

// Reverse refunds a pending debit and marks it failed, both in one
// transaction. Reversing an entry that already failed is a no-op;
// reversing a completed or cancelled entry returns ErrAlreadyTerminal.
func (s *Service) Reverse(ctx context.Context, entryID uuid.UUID, externalRef, failureReason string) (*domain.Entry, error) {
	var entry *domain.Entry
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		entry, txErr = s.ReverseTx(ctx, tx, entryID, externalRef, failureReason)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ReverseTx refunds and fails a pending debit inside a caller-managed
// transaction
func (s *Service) ReverseTx(ctx context.Context, tx pgx.Tx, entryID uuid.UUID, externalRef, failureReason string) (*domain.Entry, error) {
	entries := s.entries.WithTx(tx)

	entry, err := entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status == shared.EntryStatusFailed {
		s.logger.Info("Skipping reversal of entry already failed", "entry_id", entryID.String())
		return entry, nil
	}
	if entry.Status.IsTerminal() {
		return nil, domain.ErrAlreadyTerminal{EntryID: entryID, Status: entry.Status}
	}

	refund := entry.AmountToken.Abs().Add(entry.Fee)
	refID := entry.ID
	if _, err := s.CreditTx(ctx, tx, CreditParams{
		AccountID:   entry.AccountID,
		Kind:        shared.EntryKindReceive,
		Amount:      refund,
		RelatedID:   &refID,
		RelatedType: shared.RelatedEntityEntry,
		Details: &domain.Details{
			Description: fmt.Sprintf("Reversal of failed %s", entry.Kind),
		},
	}); err != nil {
		return nil, err
	}

	entry, err = s.SettleTx(ctx, tx, entryID, shared.EntryStatusFailed, externalRef, failureReason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reversed ledger entry",
		"entry_id", entryID.String(),
		"refund", refund.String())
	return entry, nil
}

// GetByEntryID returns a single ledger entry
func (s *Service) GetByEntryID(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	return s.entries.GetByID(ctx, id)
}

// GetByExternalRef resolves an entry by its gateway reference, returning
// ErrUnknownExternalRef when none carries it
func (s *Service) GetByExternalRef(ctx context.Context, externalRef string) (*domain.Entry, error) {
	entry, err := s.entries.GetByExternalRef(ctx, externalRef)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrUnknownExternalRef{ExternalRef: externalRef}
	}
	return entry, nil
}

// History returns an account's ledger entries, newest first, with the
// total count for pagination. Kind is optional.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, kind shared.EntryKind, limit, offset int) ([]*domain.Entry, int64, error) {
	entries, err := s.entries.GetByAccountID(ctx, accountID, kind, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.entries.CountByAccountID(ctx, accountID, kind)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// buildEntry assembles a ledger entry with a best-effort fiat snapshot
// of the token amount at event time
func (s *Service) buildEntry(ctx context.Context, acct *account.Account, kind shared.EntryKind, amountToken, fee decimal.Decimal, status shared.EntryStatus, externalRef string, relatedID *uuid.UUID, relatedType shared.RelatedEntityType, details *domain.Details) *domain.Entry {
	if status == "" {
		status = shared.EntryStatusCompleted
	}

	entry := &domain.Entry{
		ID:           uuid.New(),
		AccountID:    acct.ID,
		Kind:         kind,
		AmountToken:  amountToken,
		FiatCurrency: acct.FiatCurrency,
		Fee:          fee,
		Status:       status,
		ExternalRef:  externalRef,
		RelatedID:    relatedID,
		RelatedType:  relatedType,
		Details:      details,
		CreatedAt:    time.Now(),
	}
	if status.IsTerminal() {
		now := entry.CreatedAt
		entry.ProcessedAt = &now
	}

	if fiat, err := s.oracle.Convert(ctx, amountToken.Abs(), shared.TokenCurrency, acct.FiatCurrency); err == nil {
		entry.AmountFiat = &fiat
	}

	return entry
}

// refreshFiat recomputes the cached fiat equivalent of the balance. A
// conversion failure leaves the previous cached value in place.
func (s *Service) refreshFiat(ctx context.Context, acct *account.Account) {
	fiat, err := s.oracle.Convert(ctx, acct.Balance, shared.TokenCurrency, acct.FiatCurrency)
	if err != nil {
		s.logger.Warn("Keeping stale fiat equivalent after conversion failure",
			"account_id", acct.ID.String(),
			"error", err)
		return
	}
	acct.SetFiatEquivalent(fiat)
}
