package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByReferralCode(ctx context.Context, code string) (*Account, error)
	Update(ctx context.Context, account *Account) error

	// LockForUpdate acquires a pessimistic row lock for balance mutation
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)

	// AddReferralStats bumps the referral counters without touching the
	// balance or the optimistic-lock version
	AddReferralStats(ctx context.Context, id uuid.UUID, bonus decimal.Decimal) error

	CountReferred(ctx context.Context, referrerID uuid.UUID, verifiedOnly bool) (int64, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	AccountID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountID.String()
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}
