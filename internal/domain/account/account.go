package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Common errors
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInsufficientFunds  = errors.New("insufficient balance for operation including fees")
	ErrInvalidCredentials = errors.New("incorrect password")
	ErrEmptyUsername      = errors.New("username cannot be empty")
	ErrNegativeFee        = errors.New("fee cannot be negative")
)

// Account is a user's wallet: the GoToken balance plus the cached fiat
// equivalent recomputed whenever the balance changes. The cache may go
// stale when the conversion service is down; the balance never does.
type Account struct {
	ID             uuid.UUID       `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	PasswordHash   string          `json:"-"`
	Balance        decimal.Decimal `json:"balance"`
	FiatEquivalent decimal.Decimal `json:"fiat_equivalent"`
	FiatCurrency   string          `json:"fiat_currency"`
	ReferralCode   string          `json:"referral_code"`
	ReferredBy     *uuid.UUID      `json:"referred_by,omitempty"`
	ReferralCount  int             `json:"referral_count"`
	BonusEarned    decimal.Decimal `json:"bonus_earned"`
	EmailVerified  bool            `json:"email_verified"`
	// Privacy flags from the profile settings screens
	ActivityVisible bool `json:"activity_visible"`
	DataSharing     bool `json:"data_sharing"`

	Version   int       `json:"version"` // For optimistic locking
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccount creates an account with a zero balance
func NewAccount(username, email, passwordHash, referralCode, fiatCurrency string, referredBy *uuid.UUID) (*Account, error) {
	if username == "" {
		return nil, ErrEmptyUsername
	}

	now := time.Now()
	return &Account{
		ID:              uuid.New(),
		Username:        username,
		Email:           email,
		PasswordHash:    passwordHash,
		Balance:         decimal.Zero,
		FiatEquivalent:  decimal.Zero,
		FiatCurrency:    fiatCurrency,
		ReferralCode:    referralCode,
		ReferredBy:      referredBy,
		BonusEarned:     decimal.Zero,
		ActivityVisible: true,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Credit adds the amount to the balance
func (a *Account) Credit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = time.Now()
	a.Version++
	return nil
}

// Debit subtracts amount plus fee from the balance. The sufficiency check
// and the deduction happen on the same in-memory state; callers must hold
// a row lock so the state cannot move between the two.
func (a *Account) Debit(amount, fee decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if fee.IsNegative() {
		return ErrNegativeFee
	}

	total := amount.Add(fee)
	if a.Balance.LessThan(total) {
		return ErrInsufficientFunds
	}

	a.Balance = a.Balance.Sub(total)
	a.UpdatedAt = time.Now()
	a.Version++
	return nil
}

// CanDebit checks if the balance covers amount plus fee
func (a *Account) CanDebit(amount, fee decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount.Add(fee))
}

// MarkEmailVerified flips the verification flag. Returns false when the
// account was already verified.
func (a *Account) MarkEmailVerified() bool {
	if a.EmailVerified {
		return false
	}

	a.EmailVerified = true
	a.UpdatedAt = time.Now()
	a.Version++
	return true
}

// SetFiatEquivalent refreshes the cached display value
func (a *Account) SetFiatEquivalent(value decimal.Decimal) {
	a.FiatEquivalent = value
}

// CorrectPassword compares a candidate password against the stored hash
func (a *Account) CorrectPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(candidate)) == nil
}
