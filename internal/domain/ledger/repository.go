package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
)

// Repository defines ledger entry persistence operations. Entries live in
// the same database as accounts so a balance change and its record commit
// in one transaction.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// GetByExternalRef returns nil, nil when no entry carries the reference,
	// enabling idempotent handling of retried gateway callbacks
	GetByExternalRef(ctx context.Context, externalRef string) (*Entry, error)

	GetByAccountID(ctx context.Context, accountID uuid.UUID, kind shared.EntryKind, limit, offset int) ([]*Entry, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID, kind shared.EntryKind) (int64, error)

	// ExistsByKindAndRelated reports whether the account already holds an
	// entry of the kind referencing the related entity (duplicate guards)
	ExistsByKindAndRelated(ctx context.Context, accountID uuid.UUID, kind shared.EntryKind, relatedID uuid.UUID) (bool, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status shared.EntryStatus, externalRef, failureReason string) error
	SetExternalRef(ctx context.Context, id uuid.UUID, externalRef string) error

	// ListPendingOlderThan returns pending entries created before the cutoff,
	// oldest first, for reconciliation against the payment gateway
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*Entry, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// ErrAlreadyTerminal indicates a settle attempt on a non-pending entry
type ErrAlreadyTerminal struct {
	EntryID uuid.UUID
	Status  shared.EntryStatus
}

func (e ErrAlreadyTerminal) Error() string {
	return "ledger entry " + e.EntryID.String() + " is already " + string(e.Status)
}

// ErrDuplicateExternalRef indicates the sparse unique constraint on the
// external reference was violated
type ErrDuplicateExternalRef struct {
	ExternalRef string
}

func (e ErrDuplicateExternalRef) Error() string {
	return "ledger entry with external reference already exists: " + e.ExternalRef
}
