package wallet

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrUnsupportedSource       = errors.New("swap source currency is not tracked by the ledger")
	ErrUnsupportedChannel      = errors.New("unsupported transfer channel")
	ErrSelfPayment             = errors.New("cannot send payment to your own payment link")
	ErrUnsupportedLinkCurrency = errors.New("payment links only support GoToken payments")
	ErrDuplicateBeneficiary    = errors.New("a beneficiary with this name and type already exists")
	ErrMissingAmount           = errors.New("either a token amount or a fiat amount must be provided")
)

// Beneficiary is saved destination details for send flows. Reference data
// only; never mutated by the ledger.
type Beneficiary struct {
	ID        uuid.UUID         `json:"id"`
	AccountID uuid.UUID         `json:"account_id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"` // bank, mobile_money, crypto
	Details   map[string]string `json:"details"`
	CreatedAt time.Time         `json:"created_at"`
}

// PaymentLink is a scan-to-pay destination. The link code is embedded in a
// QR code; resolving it yields the owning account.
type PaymentLink struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Currency    string    `json:"currency"`
	LinkCode    string    `json:"link_code"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// ErrPaymentLinkNotFound indicates a missing or inactive payment link
type ErrPaymentLinkNotFound struct {
	LinkCode string
}

func (e ErrPaymentLinkNotFound) Error() string {
	return "payment link not found or inactive: " + e.LinkCode
}
