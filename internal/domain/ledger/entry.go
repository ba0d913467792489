package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
)

// Entry is the immutable record of one balance-affecting event. Rows are
// append-only; corrections happen through new compensating entries. Only
// the status (pending -> terminal) and the external reference may change
// after creation.
type Entry struct {
	ID        uuid.UUID        `json:"id"`
	AccountID uuid.UUID        `json:"account_id"`
	Kind      shared.EntryKind `json:"kind"`
	// AmountToken is signed: positive for credits, negative for debits
	AmountToken   decimal.Decimal          `json:"amount_token"`
	AmountFiat    *decimal.Decimal         `json:"amount_fiat,omitempty"`
	FiatCurrency  string                   `json:"fiat_currency,omitempty"`
	Fee           decimal.Decimal          `json:"fee"`
	Status        shared.EntryStatus       `json:"status"`
	ExternalRef   string                   `json:"external_ref,omitempty"`
	RelatedID     *uuid.UUID               `json:"related_id,omitempty"`
	RelatedType   shared.RelatedEntityType `json:"related_type,omitempty"`
	Details       *Details                 `json:"details,omitempty"`
	FailureReason string                   `json:"failure_reason,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	ProcessedAt   *time.Time               `json:"processed_at,omitempty"`
}

// Details carries kind-specific context, stored as a JSONB document
type Details struct {
	// Swap
	FromCurrency string           `json:"from_currency,omitempty"`
	ToCurrency   string           `json:"to_currency,omitempty"`
	FromAmount   *decimal.Decimal `json:"from_amount,omitempty"`
	ToAmount     *decimal.Decimal `json:"to_amount,omitempty"`
	ExchangeRate *decimal.Decimal `json:"exchange_rate,omitempty"`

	// External rails
	Channel       string `json:"channel,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	MobileNumber  string `json:"mobile_number,omitempty"`
	MobileNetwork string `json:"mobile_network,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`

	// Peer transfers
	BeneficiaryName string `json:"beneficiary_name,omitempty"`
	PaymentLinkCode string `json:"payment_link_code,omitempty"`
	FromUsername    string `json:"from_username,omitempty"`

	Description string `json:"description,omitempty"`
}
