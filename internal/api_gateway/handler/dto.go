package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aqqutelabs/gotoken-ledger/internal/domain/account"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/ledger"
)

// SwapRequest represents a token-to-fiat swap request
type SwapRequest struct {
	FromCurrency string          `json:"from_currency" binding:"required"`
	ToCurrency   string          `json:"to_currency" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
}

// WithdrawRequest represents a withdrawal to an external rail
type WithdrawRequest struct {
	Password    string            `json:"password" binding:"required"`
	Channel     string            `json:"channel" binding:"required"`
	AmountToken *decimal.Decimal  `json:"amount_token,omitempty"`
	AmountFiat  *decimal.Decimal  `json:"amount_fiat,omitempty"`
	Destination map[string]string `json:"destination" binding:"required"`
	Narration   string            `json:"narration,omitempty"`
}

// SendRequest represents a payment to another party
type SendRequest struct {
	Password        string            `json:"password" binding:"required"`
	Channel         string            `json:"channel" binding:"required"`
	AmountToken     *decimal.Decimal  `json:"amount_token,omitempty"`
	AmountFiat      *decimal.Decimal  `json:"amount_fiat,omitempty"`
	LinkCode        string            `json:"link_code,omitempty"`
	Destination     map[string]string `json:"destination,omitempty"`
	Narration       string            `json:"narration,omitempty"`
	SaveBeneficiary bool              `json:"save_beneficiary,omitempty"`
	BeneficiaryName string            `json:"beneficiary_name,omitempty"`
}

// CreateBeneficiaryRequest represents a saved destination
type CreateBeneficiaryRequest struct {
	Name    string            `json:"name" binding:"required"`
	Type    string            `json:"type" binding:"required"`
	Details map[string]string `json:"details" binding:"required"`
}

// CreatePaymentLinkRequest represents a new scan-to-pay link
type CreatePaymentLinkRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

// SubmitTaskRequest carries the proof of task completion
type SubmitTaskRequest struct {
	Proof string `json:"proof" binding:"required"`
}

// RejectAttemptRequest carries the reviewer's note for a rejection
type RejectAttemptRequest struct {
	Note string `json:"note,omitempty"`
}

// AccountResponse represents account data in API responses
type AccountResponse struct {
	ID             string          `json:"id"`
	Username       string          `json:"username"`
	Balance        decimal.Decimal `json:"balance"`
	FiatEquivalent decimal.Decimal `json:"fiat_equivalent"`
	FiatCurrency   string          `json:"fiat_currency"`
	ReferralCode   string          `json:"referral_code"`
	CreatedAt      time.Time       `json:"created_at"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID            string           `json:"id"`
	AccountID     string           `json:"account_id"`
	Kind          string           `json:"kind"`
	AmountToken   decimal.Decimal  `json:"amount_token"`
	AmountFiat    *decimal.Decimal `json:"amount_fiat,omitempty"`
	FiatCurrency  string           `json:"fiat_currency,omitempty"`
	Fee           decimal.Decimal  `json:"fee"`
	Status        string           `json:"status"`
	ExternalRef   string           `json:"external_ref,omitempty"`
	Details       *ledger.Details  `json:"details,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
}

func mapAccountToResponse(a *account.Account) *AccountResponse {
	return &AccountResponse{
		ID:             a.ID.String(),
		Username:       a.Username,
		Balance:        a.Balance,
		FiatEquivalent: a.FiatEquivalent,
		FiatCurrency:   a.FiatCurrency,
		ReferralCode:   a.ReferralCode,
		CreatedAt:      a.CreatedAt,
	}
}

func mapEntryToResponse(e *ledger.Entry) *EntryResponse {
	return &EntryResponse{
		ID:            e.ID.String(),
		AccountID:     e.AccountID.String(),
		Kind:          string(e.Kind),
		AmountToken:   e.AmountToken,
		AmountFiat:    e.AmountFiat,
		FiatCurrency:  e.FiatCurrency,
		Fee:           e.Fee,
		Status:        string(e.Status),
		ExternalRef:   e.ExternalRef,
		Details:       e.Details,
		FailureReason: e.FailureReason,
		CreatedAt:     e.CreatedAt,
		ProcessedAt:   e.ProcessedAt,
	}
}

func mapEntriesToResponse(entries []*ledger.Entry) []*EntryResponse {
	out := make([]*EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, mapEntryToResponse(e))
	}
	return out
}
