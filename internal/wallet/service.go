package wallet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aqqutelabs/gotoken-ledger/internal/config"
	"github.com/aqqutelabs/gotoken-ledger/internal/conversion"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/account"
	ledgerdomain "github.com/aqqutelabs/gotoken-ledger/internal/domain/ledger"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/notification"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
	domain "github.com/aqqutelabs/gotoken-ledger/internal/domain/wallet"
	"github.com/aqqutelabs/gotoken-ledger/internal/gateway"
	"github.com/aqqutelabs/gotoken-ledger/internal/ledger"
	notify "github.com/aqqutelabs/gotoken-ledger/internal/notification"
)

const linkCodeBytes = 6

// SwapParams describes a token-to-fiat conversion
type SwapParams struct {
	FromCurrency string
	ToCurrency   string
	Amount       decimal.Decimal
}

// WithdrawParams describes a withdrawal to an external rail. Exactly one
// of AmountToken or AmountFiat must be set.
type WithdrawParams struct {
	Password    string
	Channel     shared.Channel
	AmountToken *decimal.Decimal
	AmountFiat  *decimal.Decimal
	Destination map[string]string
	Narration   string
}

// SendParams describes a payment to another party. Scan-to-pay resolves
// a payment link; other channels go through the payment gateway.
type SendParams struct {
	Password    string
	Channel     shared.Channel
	AmountToken *decimal.Decimal
	AmountFiat  *decimal.Decimal
	LinkCode    string
	Destination map[string]string
	Narration   string

	// SaveBeneficiary stores the destination under BeneficiaryName for reuse
	SaveBeneficiary bool
	BeneficiaryName string
}

// Service implements wallet operations on top of the ledger. It owns fee
// calculation, password step-up, and gateway orchestration; all balance
// math happens inside the ledger service.
type Service struct {
	accounts account.Repository
	wallets  domain.Repository
	ledger   *ledger.Service
	oracle   *conversion.Oracle
	gateway  gateway.PaymentGateway
	sink     notify.Sink
	fees     config.FeesConfig
	logger   *slog.Logger
}

// NewService creates the wallet service
func NewService(logger *slog.Logger, cfg *config.FeesConfig, accounts account.Repository, wallets domain.Repository, ledgerSvc *ledger.Service, oracle *conversion.Oracle, gw gateway.PaymentGateway, sink notify.Sink) *Service {
	return &Service{
		accounts: accounts,
		wallets:  wallets,
		ledger:   ledgerSvc,
		oracle:   oracle,
		gateway:  gw,
		sink:     sink,
		fees:     *cfg,
		logger:   logger,
	}
}

// GetAccount returns the account with its cached fiat equivalent
func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (*account.Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}

// History returns the account's ledger entries, newest first
func (s *Service) History(ctx context.Context, accountID uuid.UUID, kind shared.EntryKind, limit, offset int) ([]*ledgerdomain.Entry, int64, error) {
	return s.ledger.History(ctx, accountID, kind, limit, offset)
}

// Swap converts tokens to a fiat balance snapshot. Only GoToken is
// accepted as the source currency. The rate is resolved before any
// balance change; an unavailable rate aborts the swap.
func (s *Service) Swap(ctx context.Context, accountID uuid.UUID, p SwapParams) (*ledgerdomain.Entry, error) {
	if p.FromCurrency != shared.TokenCurrency {
		return nil, domain.ErrUnsupportedSource
	}
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, account.ErrInvalidAmount
	}

	rate, err := s.oracle.Rate(ctx, shared.TokenCurrency, p.ToCurrency)
	if err != nil {
		return nil, err
	}

	fee := p.Amount.Mul(s.fees.SwapRate)
	toAmount := p.Amount.Mul(rate)

	amount := p.Amount
	entry, err := s.ledger.Debit(ctx, ledger.DebitParams{
		AccountID: accountID,
		Kind:      shared.EntryKindSwap,
		Amount:    amount,
		Fee:       fee,
		Status:    shared.EntryStatusCompleted,
		Details: &ledgerdomain.Details{
			FromCurrency: p.FromCurrency,
			ToCurrency:   p.ToCurrency,
			FromAmount:   &amount,
			ToAmount:     &toAmount,
			ExchangeRate: &rate,
		},
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Swapped tokens",
		"account_id", accountID.String(),
		"entry_id", entry.ID.String(),
		"amount", p.Amount.String(),
		"to_currency", p.ToCurrency,
		"rate", rate.String())
	return entry, nil
}

// Withdraw moves tokens to an external rail. The debit is recorded
// pending before the gateway is called; the outcome settles it.
func (s *Service) Withdraw(ctx context.Context, accountID uuid.UUID, p WithdrawParams) (*ledgerdomain.Entry, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !acct.CorrectPassword(p.Password) {
		return nil, account.ErrInvalidCredentials
	}
	if p.Channel.Internal() {
		return nil, domain.ErrUnsupportedChannel
	}

	amount, err := s.resolveAmount(ctx, acct, p.AmountToken, p.AmountFiat)
	if err != nil {
		return nil, err
	}
	fee := s.fees.WithdrawalBase.Add(amount.Mul(s.fees.WithdrawalRate))

	amountFiat, err := s.gatewayAmount(ctx, acct, amount, p.AmountFiat)
	if err != nil {
		return nil, err
	}

	details := railDetails(p.Channel, p.Destination)
	details.Description = p.Narration

	entry, err := s.ledger.Debit(ctx, ledger.DebitParams{
		AccountID: accountID,
		Kind:      shared.EntryKindWithdrawal,
		Amount:    amount,
		Fee:       fee,
		Status:    shared.EntryStatusPending,
		Details:   details,
	})
	if err != nil {
		return nil, err
	}

	return s.dispatch(ctx, acct, entry, amountFiat, p.Channel, p.Destination, p.Narration)
}

// Send pays another party. Scan-to-pay settles instantly inside one
// transaction; external channels behave like withdrawals with the send
// fee schedule.
func (s *Service) Send(ctx context.Context, accountID uuid.UUID, p SendParams) (*ledgerdomain.Entry, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !acct.CorrectPassword(p.Password) {
		return nil, account.ErrInvalidCredentials
	}

	amount, err := s.resolveAmount(ctx, acct, p.AmountToken, p.AmountFiat)
	if err != nil {
		return nil, err
	}
	fee := amount.Mul(s.fees.SendRate)

	if p.Channel == shared.ChannelScanToPay {
		return s.sendToLink(ctx, acct, p.LinkCode, amount, fee, p.Narration)
	}

	switch p.Channel {
	case shared.ChannelBank, shared.ChannelMobileMoney, shared.ChannelCrypto:
	default:
		return nil, domain.ErrUnsupportedChannel
	}

	amountFiat, err := s.gatewayAmount(ctx, acct, amount, p.AmountFiat)
	if err != nil {
		return nil, err
	}

	if p.SaveBeneficiary && p.BeneficiaryName != "" {
		if err := s.saveBeneficiary(ctx, accountID, p.BeneficiaryName, string(p.Channel), p.Destination); err != nil {
			s.logger.Warn("Failed to save beneficiary during send",
				"account_id", accountID.String(),
				"error", err)
		}
	}

	details := railDetails(p.Channel, p.Destination)
	details.Description = p.Narration
	details.BeneficiaryName = p.BeneficiaryName

	entry, err := s.ledger.Debit(ctx, ledger.DebitParams{
		AccountID: accountID,
		Kind:      shared.EntryKindSend,
		Amount:    amount,
		Fee:       fee,
		Status:    shared.EntryStatusPending,
		Details:   details,
	})
	if err != nil {
		return nil, err
	}

	return s.dispatch(ctx, acct, entry, amountFiat, p.Channel, p.Destination, p.Narration)
}

// sendToLink resolves a payment link and moves tokens between the two
// accounts atomically
func (s *Service) sendToLink(ctx context.Context, sender *account.Account, linkCode string, amount, fee decimal.Decimal, narration string) (*ledgerdomain.Entry, error) {
	link, err := s.wallets.GetPaymentLinkByCode(ctx, linkCode)
	if err != nil {
		return nil, err
	}
	if link.Currency != shared.TokenCurrency {
		return nil, domain.ErrUnsupportedLinkCurrency
	}
	if link.AccountID == sender.ID {
		return nil, domain.ErrSelfPayment
	}

	debitEntry, _, err := s.ledger.Transfer(ctx, ledger.TransferParams{
		FromAccountID: sender.ID,
		ToAccountID:   link.AccountID,
		Amount:        amount,
		Fee:           fee,
		DebitKind:     shared.EntryKindSend,
		DebitDetails: &ledgerdomain.Details{
			Channel:         string(shared.ChannelScanToPay),
			PaymentLinkCode: linkCode,
			BeneficiaryName: link.Name,
			Description:     narration,
		},
		ReceiveDetails: &ledgerdomain.Details{
			Channel:         string(shared.ChannelScanToPay),
			PaymentLinkCode: linkCode,
			Description:     narration,
		},
	})
	if err != nil {
		return nil, err
	}

	s.sink.Notify(ctx, link.AccountID, notification.EventFundsReceived,
		fmt.Sprintf("%s paid %s GoToken to your link %q", sender.Username, amount.String(), link.Name),
		map[string]any{"entry_id": debitEntry.ID.String(), "link_code": linkCode})
	return debitEntry, nil
}

// dispatch hands a pending debit to the payment gateway and applies the
// outcome. The gateway moves fiat, so amountFiat is the rail amount, not
// the token amount. An unknown outcome leaves the entry pending for the
// reconciler; a definite rejection reverses it.
func (s *Service) dispatch(ctx context.Context, acct *account.Account, entry *ledgerdomain.Entry, amountFiat decimal.Decimal, channel shared.Channel, destination map[string]string, narration string) (*ledgerdomain.Entry, error) {
	result, err := s.gateway.Transfer(ctx, gateway.TransferRequest{
		Reference:   entry.ID.String(),
		Amount:      amountFiat,
		Currency:    acct.FiatCurrency,
		Channel:     channel,
		Destination: destination,
		Narration:   narration,
	})
	if err != nil {
		if gateway.IsOutcomeUnknown(err) {
			s.logger.Warn("Gateway outcome unknown, leaving entry pending",
				"entry_id", entry.ID.String(),
				"error", err)
			return entry, nil
		}
		reversed, revErr := s.ledger.Reverse(ctx, entry.ID, "", err.Error())
		if revErr != nil {
			return nil, revErr
		}
		s.notifyStatus(ctx, acct.ID, reversed)
		return reversed, nil
	}

	switch result.Status {
	case gateway.StatusSuccess:
		settled, err := s.ledger.Settle(ctx, entry.ID, shared.EntryStatusCompleted, result.ExternalRef, "")
		if err != nil {
			return nil, err
		}
		s.notifyStatus(ctx, acct.ID, settled)
		return settled, nil
	case gateway.StatusFailed:
		reversed, err := s.ledger.Reverse(ctx, entry.ID, result.ExternalRef, result.FailureReason)
		if err != nil {
			return nil, err
		}
		s.notifyStatus(ctx, acct.ID, reversed)
		return reversed, nil
	default:
		if result.ExternalRef != "" {
			if err := s.ledger.SetExternalRef(ctx, entry.ID, result.ExternalRef); err != nil {
				s.logger.Error("Failed to attach external reference",
					"entry_id", entry.ID.String(),
					"external_ref", result.ExternalRef,
					"error", err)
			} else {
				entry.ExternalRef = result.ExternalRef
			}
		}
		return entry, nil
	}
}

func (s *Service) notifyStatus(ctx context.Context, accountID uuid.UUID, entry *ledgerdomain.Entry) {
	s.sink.Notify(ctx, accountID, notification.EventTransactionStatus,
		fmt.Sprintf("Your %s of %s GoToken is %s", entry.Kind, entry.AmountToken.Abs().String(), entry.Status),
		map[string]any{"entry_id": entry.ID.String(), "status": string(entry.Status)})
}

// gatewayAmount returns the fiat amount the gateway is asked to move.
// A fiat figure supplied by the caller is used as given; otherwise the
// token amount is converted at the current rate. An unavailable rate
// aborts the operation, so this runs before any balance change.
func (s *Service) gatewayAmount(ctx context.Context, acct *account.Account, tokenAmount decimal.Decimal, givenFiat *decimal.Decimal) (decimal.Decimal, error) {
	if givenFiat != nil {
		return *givenFiat, nil
	}
	return s.oracle.Convert(ctx, tokenAmount, shared.TokenCurrency, acct.FiatCurrency)
}

// resolveAmount determines the token amount to move. A fiat amount is
// converted at the current rate; an unavailable rate aborts the
// operation before any balance change.
func (s *Service) resolveAmount(ctx context.Context, acct *account.Account, amountToken, amountFiat *decimal.Decimal) (decimal.Decimal, error) {
	switch {
	case amountToken != nil:
		return *amountToken, nil
	case amountFiat != nil:
		return s.oracle.Convert(ctx, *amountFiat, acct.FiatCurrency, shared.TokenCurrency)
	default:
		return decimal.Zero, domain.ErrMissingAmount
	}
}

// AddBeneficiary saves destination details for reuse in send flows
func (s *Service) AddBeneficiary(ctx context.Context, accountID uuid.UUID, name, beneficiaryType string, details map[string]string) (*domain.Beneficiary, error) {
	existing, err := s.wallets.GetBeneficiary(ctx, accountID, name, beneficiaryType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateBeneficiary
	}

	b := &domain.Beneficiary{
		ID:        uuid.New(),
		AccountID: accountID,
		Name:      name,
		Type:      beneficiaryType,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if err := s.wallets.CreateBeneficiary(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBeneficiaries returns the account's saved beneficiaries
func (s *Service) ListBeneficiaries(ctx context.Context, accountID uuid.UUID) ([]*domain.Beneficiary, error) {
	return s.wallets.ListBeneficiaries(ctx, accountID)
}

// CreatePaymentLink mints a scan-to-pay link with a unique code
func (s *Service) CreatePaymentLink(ctx context.Context, accountID uuid.UUID, name, description, currency string) (*domain.PaymentLink, error) {
	if currency == "" {
		currency = shared.TokenCurrency
	}
	if currency != shared.TokenCurrency {
		return nil, domain.ErrUnsupportedLinkCurrency
	}

	code, err := s.uniqueLinkCode(ctx)
	if err != nil {
		return nil, err
	}

	link := &domain.PaymentLink{
		ID:          uuid.New(),
		AccountID:   accountID,
		Name:        name,
		Description: description,
		Currency:    currency,
		LinkCode:    code,
		Active:      true,
		CreatedAt:   time.Now(),
	}
	if err := s.wallets.CreatePaymentLink(ctx, link); err != nil {
		return nil, err
	}

	s.logger.Info("Created payment link",
		"account_id", accountID.String(),
		"link_code", code)
	return link, nil
}

// ResolvePaymentLink returns an active link and its owner's display name
func (s *Service) ResolvePaymentLink(ctx context.Context, linkCode string) (*domain.PaymentLink, string, error) {
	link, err := s.wallets.GetPaymentLinkByCode(ctx, linkCode)
	if err != nil {
		return nil, "", err
	}
	owner, err := s.accounts.GetByID(ctx, link.AccountID)
	if err != nil {
		return nil, "", err
	}
	return link, owner.Username, nil
}

func (s *Service) saveBeneficiary(ctx context.Context, accountID uuid.UUID, name, beneficiaryType string, details map[string]string) error {
	_, err := s.AddBeneficiary(ctx, accountID, name, beneficiaryType, details)
	if err == domain.ErrDuplicateBeneficiary {
		return nil
	}
	return err
}

func (s *Service) uniqueLinkCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		buf := make([]byte, linkCodeBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate link code: %w", err)
		}
		code := hex.EncodeToString(buf)

		exists, err := s.wallets.LinkCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique link code")
}

func railDetails(channel shared.Channel, destination map[string]string) *ledgerdomain.Details {
	d := &ledgerdomain.Details{Channel: string(channel)}
	switch channel {
	case shared.ChannelBank:
		d.AccountNumber = destination["account_number"]
		d.BankName = destination["bank_name"]
	case shared.ChannelMobileMoney:
		d.MobileNumber = destination["mobile_number"]
		d.MobileNetwork = destination["mobile_network"]
	case shared.ChannelCrypto:
		d.WalletAddress = destination["wallet_address"]
	}
	return d
}
