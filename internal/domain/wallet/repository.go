package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines beneficiary and payment link persistence operations
type Repository interface {
	CreateBeneficiary(ctx context.Context, b *Beneficiary) error
	// GetBeneficiary returns nil, nil when no beneficiary matches
	GetBeneficiary(ctx context.Context, accountID uuid.UUID, name, beneficiaryType string) (*Beneficiary, error)
	ListBeneficiaries(ctx context.Context, accountID uuid.UUID) ([]*Beneficiary, error)

	CreatePaymentLink(ctx context.Context, l *PaymentLink) error
	// GetPaymentLinkByCode only resolves active links
	GetPaymentLinkByCode(ctx context.Context, linkCode string) (*PaymentLink, error)
	LinkCodeExists(ctx context.Context, linkCode string) (bool, error)

	WithTx(tx pgx.Tx) Repository
}
