package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aqqutelabs/gotoken-ledger/internal/config"
	"github.com/aqqutelabs/gotoken-ledger/internal/conversion"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/account"
	ledgerdomain "github.com/aqqutelabs/gotoken-ledger/internal/domain/ledger"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/notification"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
	domain "github.com/aqqutelabs/gotoken-ledger/internal/domain/wallet"
	"github.com/aqqutelabs/gotoken-ledger/internal/gateway"
	"github.com/aqqutelabs/gotoken-ledger/internal/ledger"
	"github.com/aqqutelabs/gotoken-ledger/internal/testutil"
)

type serviceFixture struct {
	svc      *Service
	accounts *testutil.MockAccountRepo
	wallets  *testutil.MockWalletRepo
	entries  *testutil.MockLedgerRepo
	gateway  *testutil.MockGateway
	sink     *testutil.SinkRecorder
}

func newServiceFixture() *serviceFixture {
	accounts := new(testutil.MockAccountRepo)
	wallets := new(testutil.MockWalletRepo)
	entries := new(testutil.MockLedgerRepo)
	gw := new(testutil.MockGateway)
	sink := &testutil.SinkRecorder{}

	accounts.On("WithTx", mock.Anything).Return(accounts).Maybe()
	entries.On("WithTx", mock.Anything).Return(entries).Maybe()
	wallets.On("WithTx", mock.Anything).Return(wallets).Maybe()

	// Entries created through the ledger become resolvable by ID so
	// settlement and reversal paths can find them
	entries.On("Create", mock.Anything, mock.AnythingOfType("*ledger.Entry")).
		Run(func(args mock.Arguments) {
			e := args.Get(1).(*ledgerdomain.Entry)
			entries.On("GetByID", mock.Anything, e.ID).Return(e, nil).Maybe()
		}).Return(nil).Maybe()

	oracle := testutil.NewTestOracle(nil)
	ledgerSvc := ledger.NewService(testutil.NewTestLogger(), testutil.FakeTxRunner{}, accounts, entries, oracle)
	fees := &config.FeesConfig{
		SwapRate:       decimal.RequireFromString("0.001"),
		SendRate:       decimal.RequireFromString("0.002"),
		WithdrawalRate: decimal.RequireFromString("0.005"),
		WithdrawalBase: decimal.RequireFromString("0.00001"),
	}
	return &serviceFixture{
		svc:      NewService(testutil.NewTestLogger(), fees, accounts, wallets, ledgerSvc, oracle, gw, sink),
		accounts: accounts,
		wallets:  wallets,
		entries:  entries,
		gateway:  gw,
		sink:     sink,
	}
}

func fundedAccount(t *testing.T, balance string) *account.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return &account.Account{
		ID:           uuid.New(),
		Username:     "olamide",
		PasswordHash: string(hash),
		Balance:      decimal.RequireFromString(balance),
		FiatCurrency: "USD",
		Version:      1,
	}
}

func tokens(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestService_Swap(t *testing.T) {
	ctx := context.Background()

	t.Run("ConvertsTokensAtCurrentRate", func(t *testing.T) {
		f := newServiceFixture()
		acct := fundedAccount(t, "100")
		f.accounts.On("LockForUpdate", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("Update", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil)

		entry, err := f.svc.Swap(ctx, acct.ID, SwapParams{
			FromCurrency: shared.TokenCurrency,
			ToCurrency:   "USD",
			Amount:       decimal.NewFromInt(50),
		})

		require.NoError(t, err)
		assert.True(t, acct.Balance.Equal(decimal.RequireFromString("49.95")), "100 - 50 - 0.05 fee, got %s", acct.Balance)
		assert.Equal(t, shared.EntryKindSwap, entry.Kind)
		assert.Equal(t, shared.EntryStatusCompleted, entry.Status)
		assert.True(t, entry.AmountToken.Equal(decimal.NewFromInt(-50)))
		assert.True(t, entry.Fee.Equal(decimal.RequireFromString("0.05")))

		require.NotNil(t, entry.Details)
		require.NotNil(t, entry.Details.ToAmount)
		assert.True(t, entry.Details.ToAmount.Equal(decimal.RequireFromString("0.0012")), "50 tokens at 0.000024, got %s", entry.Details.ToAmount)
		require.NotNil(t, entry.Details.ExchangeRate)
		assert.True(t, entry.Details.ExchangeRate.Equal(decimal.RequireFromString("0.000024")))
	})

	t.Run("OnlyTokenSourceSupported", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.svc.Swap(ctx, uuid.New(), SwapParams{
			FromCurrency: "USD",
			ToCurrency:   shared.TokenCurrency,
			Amount:       decimal.NewFromInt(10),
		})

		assert.ErrorIs(t, err, domain.ErrUnsupportedSource)
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.svc.Swap(ctx, uuid.New(), SwapParams{
			FromCurrency: shared.TokenCurrency,
			ToCurrency:   "USD",
			Amount:       decimal.Zero,
		})

		assert.ErrorIs(t, err, account.ErrInvalidAmount)
	})

	t.Run("UnavailableRateAbortsBeforeDebit", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.svc.Swap(ctx, uuid.New(), SwapParams{
			FromCurrency: shared.TokenCurrency,
			ToCurrency:   "EUR",
			Amount:       decimal.NewFromInt(10),
		})

		var rateErr conversion.ErrRateUnavailable
		require.ErrorAs(t, err, &rateErr)
		f.accounts.AssertNotCalled(t, "LockForUpdate", mock.Anything, mock.Anything)
	})
}

func TestService_Withdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("WrongPassword", func(t *testing.T) {
		f := newServiceFixture()
		acct := fundedAccount(t, "100")
		f.accounts.On("GetByID", mock.Anything, acct.ID).Return(acct, nil)

		_, err := f.svc.Withdraw(ctx, acct.ID, WithdrawParams{
			Password:    "wrong",
			Channel:     shared.ChannelBank,
			AmountToken: tokens("30"),
		})

		assert.ErrorIs(t, err, account.ErrInvalidCredentials)
		f.accounts.AssertNotCalled(t, "LockForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("InternalChannelRejected", func(t *testing.T) {
		f := newServiceFixture()
		acct := fundedAccount(t, "100")
		f.accounts.On("GetByID", mock.Anything, acct.ID).Return(acct, nil)

		_, err := f.svc.Withdraw(ctx, acct.ID, WithdrawParams{
			Password:    "s3cret",
			Channel:     shared.ChannelScanToPay,
			AmountToken: tokens("30"),
		})

		assert.ErrorIs(t, err, domain.ErrUnsupportedChannel)
	})

	t.Run("MissingAmount", func(t *testing.T) {
		f := newServiceFixture()
		acct := fundedAccount(t, "100")
		f.accounts.On("GetByID", mock.Anything, acct.ID).Return(acct, nil)

		_, err := f.svc.Withdraw(ctx, acct.ID, WithdrawParams{
			Password: "s3cret",
			Channel:  shared.ChannelBank,
		})

		assert.ErrorIs(t, err, domain.ErrMissingAmount)
	})

	t.Run("GatewaySuccessSettlesEntry", func(t *testing.T) {
		f := newServiceFixture()
		acct := fundedAccount(t, "100")
		f.accounts.On("GetByID", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("LockForUpdate", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("Update", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil)
		f.entries.On("UpdateStatus", mock.Anything, mock.AnythingOfType("uuid.UUID"), shared.EntryStatusCompleted, "pp-1", "").Return(nil)
		f.gateway.On("Transfer", mock.Anything, mock.AnythingOfType("gateway.TransferRequest")).
			Return(&gateway.TransferResult{ExternalRef: "pp-1", Status: gateway.StatusSuccess}, nil)

		entry, err := f.svc.Withdraw(ctx, acct.ID, WithdrawParams{
			Password:    "s3cret",
			Channel:     shared.ChannelBank,
			AmountToken: tokens("30"),
			Destination: map[string]string{"account_number": "0123456789", "bank_name": "GTB"},
		})

		require.NoError(t, err)
		// 100 - 30 - (0.00001 + 30*0.005)
		assert.True(t, acct.Balance.Equal(decimal.RequireFromString("69.84999")), "got %s", acct.Balance)
		assert.Equal(t, shared.EntryStatusCompleted, entry.Status)
		assert.Equal(t, "pp-1", entry.ExternalRef)
		assert.Equal(t, "0123456789", entry.Details.AccountNumber)

		require.Len(t, f.sink.Notifications, 1)
		assert.Equal(t, notification.EventTransactionStatus, f.sink.Notifications[0].Kind)
	})

	t.Run("GatewayFailureReversesDebit", func(t *testing.T) {
		f := newServiceFixture()
		acct := fundedAccount(t, "100")
		f.accounts.On("GetByID", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("LockForUpdate", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("Update", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil)
		f.entries.On("UpdateStatus", mock.Anything, mock.AnythingOfType("uuid.UUID"), shared.EntryStatusFailed, "pp-2", "insufficient float").Return(nil)
		f.gateway.On("Transfer", mock.Anything, mock.AnythingOfType("gateway.TransferRequest")).
			Return(&gateway.TransferResult{ExternalRef: "pp-2", Status: gateway.StatusFailed, FailureReason: "insufficient float"}, nil)

		entry, err := f.svc.Withdraw(ctx, acct.ID, WithdrawParams{
			Password:    "s3cret",
			Channel:     shared.ChannelBank,
			AmountToken: tokens("30"),
			Destination: map[string]string{"account_number": "0123456789", "bank_name": "GTB"},
		})

		require.NoError(t, err)
		assert.True(t, acct.Balance.Equal(decimal.NewFromInt(100)), "Refund restores the full balance, got %s", acct.Balance)
		assert.Equal(t, shared.EntryStatusFailed, entry.Status)
		assert.Equal(t, "insufficient float", entry.FailureReason)

		require.Len(t, f.sink.Notifications, 1)
		assert.Equal(t, notification.EventTransactionStatus, f.sink.Notifications[0].Kind)
	})

	t.Run("UnknownOutcomeLeavesEntryPending", func(t *testing.T) {
		f := newServiceFixture()
		acct := fundedAccount(t, "100")
		f.accounts.On("GetByID", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("LockForUpdate", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("Update", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil)
		f.gateway.On("Transfer", mock.Anything, mock.AnythingOfType("gateway.TransferRequest")).
			Return(nil, context.DeadlineExceeded)

		entry, err := f.svc.Withdraw(ctx, acct.ID, WithdrawParams{
			Password:    "s3cret",
			Channel:     shared.ChannelBank,
			AmountToken: tokens("30"),
			Destination: map[string]string{"account_number": "0123456789", "bank_name": "GTB"},
		})

		require.NoError(t, err)
		assert.Equal(t, shared.EntryStatusPending, entry.Status, "Reconciler picks the entry up later")
		assert.True(t, acct.Balance.Equal(decimal.RequireFromString("69.84999")), "Funds stay held while the outcome is unknown")
		f.entries.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, f.sink.Notifications)
	})

	t.Run("DefiniteGatewayRejectionReverses", func(t *testing.T) {
		f := newServiceFixture()
		acct := fundedAccount(t, "100")
		f.accounts.On("GetByID", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("LockForUpdate", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("Update", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil)
		f.entries.On("UpdateStatus", mock.Anything, mock.AnythingOfType("uuid.UUID"), shared.EntryStatusFailed, "", mock.AnythingOfType("string")).Return(nil)
		f.gateway.On("Transfer", mock.Anything, mock.AnythingOfType("gateway.TransferRequest")).
			Return(nil, gateway.GatewayError{StatusCode: 400, Message: "invalid account number"})

		entry, err := f.svc.Withdraw(ctx, acct.ID, WithdrawParams{
			Password:    "s3cret",
			Channel:     shared.ChannelBank,
			AmountToken: tokens("30"),
			Destination: map[string]string{"account_number": "bad", "bank_name": "GTB"},
		})

		require.NoError(t, err)
		assert.True(t, acct.Balance.Equal(decimal.NewFromInt(100)), "got %s", acct.Balance)
		assert.Equal(t, shared.EntryStatusFailed, entry.Status)
	})

	t.Run("PendingResultAttachesExternalRef", func(t *testing.T) {
		f := newServiceFixture()
		acct := fundedAccount(t, "100")
		f.accounts.On("GetByID", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("LockForUpdate", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("Update", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil)
		f.entries.On("SetExternalRef", mock.Anything, mock.AnythingOfType("uuid.UUID"), "pp-9").Return(nil)
		f.gateway.On("Transfer", mock.Anything, mock.AnythingOfType("gateway.TransferRequest")).
			Return(&gateway.TransferResult{ExternalRef: "pp-9", Status: gateway.StatusPending}, nil)

		entry, err := f.svc.Withdraw(ctx, acct.ID, WithdrawParams{
			Password:    "s3cret",
			Channel:     shared.ChannelMobileMoney,
			AmountToken: tokens("5"),
			Destination: map[string]string{"mobile_number": "+2348012345678", "mobile_network": "MTN"},
		})

		require.NoError(t, err)
		assert.Equal(t, shared.EntryStatusPending, entry.Status)
		assert.Equal(t, "pp-9", entry.ExternalRef)
		f.entries.AssertCalled(t, "SetExternalRef", mock.Anything, entry.ID, "pp-9")
	})

	t.Run("FiatAmountConvertsToTokens", func(t *testing.T) {
		f := newServiceFixture()
		acct := fundedAccount(t, "100")
		f.accounts.On("GetByID", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("LockForUpdate", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("Update", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil)
		f.gateway.On("Transfer", mock.Anything, mock.AnythingOfType("gateway.TransferRequest")).
			Return(&gateway.TransferResult{Status: gateway.StatusPending}, nil)

		entry, err := f.svc.Withdraw(ctx, acct.ID, WithdrawParams{
			Password:   "s3cret",
			Channel:    shared.ChannelBank,
			AmountFiat: tokens("0.00072"),
			Destination: map[string]string{
				"account_number": "0123456789",
				"bank_name":      "GTB",
			},
		})

		require.NoError(t, err)
		// 0.00072 USD at 0.000024 per token is 30 tokens, subject to
		// division precision in the intermediate rate
		diff := entry.AmountToken.Abs().Sub(decimal.NewFromInt(30)).Abs()
		assert.True(t, diff.LessThan(decimal.RequireFromString("0.000000001")), "got %s", entry.AmountToken)
	})

	t.Run("GatewayChargedInFiat", func(t *testing.T) {
		f := newServiceFixture()
		acct := fundedAccount(t, "1010000")
		f.accounts.On("GetByID", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("LockForUpdate", mock.Anything, acct.ID).Return(acct, nil)
		f.accounts.On("Update", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil)

		// The rail moves fiat, so the gateway must see the converted
		// amount, not the token figure
		var req gateway.TransferRequest
		f.gateway.On("Transfer", mock.Anything, mock.AnythingOfType("gateway.TransferRequest")).
			Run(func(args mock.Arguments) {
				req = args.Get(1).(gateway.TransferRequest)
			}).
			Return(&gateway.TransferResult{Status: gateway.StatusPending}, nil)

		_, err := f.svc.Withdraw(ctx, acct.ID, WithdrawParams{
			Password:    "s3cret",
			Channel:     shared.ChannelBank,
			AmountToken: tokens("1000000"),
			Destination: map[string]string{"account_number": "0123456789", "bank_name": "GTB"},
		})

		require.NoError(t, err)
		// 1,000,000 tokens at 0.000024 USD per token
		assert.True(t, req.Amount.Equal(decimal.NewFromInt(24)), "got %s %s", req.Amount, req.Currency)
		assert.Equal(t, "USD", req.Currency)
	})
}

func TestService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("ScanToPayTransfersInstantly", func(t *testing.T) {
		f := newServiceFixture()
		sender := fundedAccount(t, "10")
		recipient := fundedAccount(t, "1")
		recipient.Username = "tolu"

		link := &domain.PaymentLink{
			ID:        uuid.New(),
			AccountID: recipient.ID,
			Name:      "Coffee fund",
			Currency:  shared.TokenCurrency,
			LinkCode:  "a1b2c3d4e5f6",
			Active:    true,
		}

		f.accounts.On("GetByID", mock.Anything, sender.ID).Return(sender, nil)
		f.wallets.On("GetPaymentLinkByCode", mock.Anything, link.LinkCode).Return(link, nil)
		f.accounts.On("LockForUpdate", mock.Anything, sender.ID).Return(sender, nil)
		f.accounts.On("LockForUpdate", mock.Anything, recipient.ID).Return(recipient, nil)
		f.accounts.On("Update", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil)

		entry, err := f.svc.Send(ctx, sender.ID, SendParams{
			Password:    "s3cret",
			Channel:     shared.ChannelScanToPay,
			AmountToken: tokens("4"),
			LinkCode:    link.LinkCode,
		})

		require.NoError(t, err)
		assert.True(t, sender.Balance.Equal(decimal.RequireFromString("5.992")), "10 - 4 - 0.008 send fee, got %s", sender.Balance)
		assert.True(t, recipient.Balance.Equal(decimal.NewFromInt(5)))
		assert.Equal(t, shared.EntryKindSend, entry.Kind)
		assert.Equal(t, shared.EntryStatusCompleted, entry.Status)
		assert.Equal(t, link.LinkCode, entry.Details.PaymentLinkCode)

		require.Len(t, f.sink.Notifications, 1)
		assert.Equal(t, notification.EventFundsReceived, f.sink.Notifications[0].Kind)
		assert.Equal(t, recipient.ID, f.sink.Notifications[0].AccountID)
		f.gateway.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
	})

	t.Run("SelfPaymentRejected", func(t *testing.T) {
		f := newServiceFixture()
		sender := fundedAccount(t, "10")
		link := &domain.PaymentLink{
			ID:        uuid.New(),
			AccountID: sender.ID,
			Currency:  shared.TokenCurrency,
			LinkCode:  "selfselfself",
			Active:    true,
		}

		f.accounts.On("GetByID", mock.Anything, sender.ID).Return(sender, nil)
		f.wallets.On("GetPaymentLinkByCode", mock.Anything, link.LinkCode).Return(link, nil)

		_, err := f.svc.Send(ctx, sender.ID, SendParams{
			Password:    "s3cret",
			Channel:     shared.ChannelScanToPay,
			AmountToken: tokens("1"),
			LinkCode:    link.LinkCode,
		})

		assert.ErrorIs(t, err, domain.ErrSelfPayment)
		f.accounts.AssertNotCalled(t, "LockForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("UnknownLinkCode", func(t *testing.T) {
		f := newServiceFixture()
		sender := fundedAccount(t, "10")

		f.accounts.On("GetByID", mock.Anything, sender.ID).Return(sender, nil)
		f.wallets.On("GetPaymentLinkByCode", mock.Anything, "missing").
			Return(nil, domain.ErrPaymentLinkNotFound{LinkCode: "missing"})

		_, err := f.svc.Send(ctx, sender.ID, SendParams{
			Password:    "s3cret",
			Channel:     shared.ChannelScanToPay,
			AmountToken: tokens("1"),
			LinkCode:    "missing",
		})

		var notFound domain.ErrPaymentLinkNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "missing", notFound.LinkCode)
	})

	t.Run("UnsupportedChannel", func(t *testing.T) {
		f := newServiceFixture()
		sender := fundedAccount(t, "10")
		f.accounts.On("GetByID", mock.Anything, sender.ID).Return(sender, nil)

		_, err := f.svc.Send(ctx, sender.ID, SendParams{
			Password:    "s3cret",
			Channel:     shared.Channel("carrier_pigeon"),
			AmountToken: tokens("1"),
		})

		assert.ErrorIs(t, err, domain.ErrUnsupportedChannel)
	})

	t.Run("SavesBeneficiaryBeforeExternalSend", func(t *testing.T) {
		f := newServiceFixture()
		sender := fundedAccount(t, "10")
		destination := map[string]string{"account_number": "0123456789", "bank_name": "GTB"}

		f.accounts.On("GetByID", mock.Anything, sender.ID).Return(sender, nil)
		f.accounts.On("LockForUpdate", mock.Anything, sender.ID).Return(sender, nil)
		f.accounts.On("Update", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil)
		f.wallets.On("GetBeneficiary", mock.Anything, sender.ID, "Mum", "bank").Return(nil, nil)
		f.wallets.On("CreateBeneficiary", mock.Anything, mock.MatchedBy(func(b *domain.Beneficiary) bool {
			return b.Name == "Mum" && b.Type == "bank" && b.Details["account_number"] == "0123456789"
		})).Return(nil)
		f.gateway.On("Transfer", mock.Anything, mock.AnythingOfType("gateway.TransferRequest")).
			Return(&gateway.TransferResult{Status: gateway.StatusPending}, nil)

		entry, err := f.svc.Send(ctx, sender.ID, SendParams{
			Password:        "s3cret",
			Channel:         shared.ChannelBank,
			AmountToken:     tokens("2"),
			Destination:     destination,
			SaveBeneficiary: true,
			BeneficiaryName: "Mum",
		})

		require.NoError(t, err)
		assert.Equal(t, shared.EntryKindSend, entry.Kind)
		assert.Equal(t, shared.EntryStatusPending, entry.Status)
		assert.Equal(t, "Mum", entry.Details.BeneficiaryName)
		f.wallets.AssertExpectations(t)
	})
}

func TestService_AddBeneficiary(t *testing.T) {
	ctx := context.Background()

	t.Run("DuplicateRejected", func(t *testing.T) {
		f := newServiceFixture()
		accountID := uuid.New()
		existing := &domain.Beneficiary{ID: uuid.New(), AccountID: accountID, Name: "Mum", Type: "bank"}
		f.wallets.On("GetBeneficiary", mock.Anything, accountID, "Mum", "bank").Return(existing, nil)

		_, err := f.svc.AddBeneficiary(ctx, accountID, "Mum", "bank", nil)

		assert.ErrorIs(t, err, domain.ErrDuplicateBeneficiary)
		f.wallets.AssertNotCalled(t, "CreateBeneficiary", mock.Anything, mock.Anything)
	})

	t.Run("StoresNewBeneficiary", func(t *testing.T) {
		f := newServiceFixture()
		accountID := uuid.New()
		f.wallets.On("GetBeneficiary", mock.Anything, accountID, "Mum", "bank").Return(nil, nil)
		f.wallets.On("CreateBeneficiary", mock.Anything, mock.AnythingOfType("*wallet.Beneficiary")).Return(nil)

		b, err := f.svc.AddBeneficiary(ctx, accountID, "Mum", "bank", map[string]string{"account_number": "0123456789"})

		require.NoError(t, err)
		assert.Equal(t, accountID, b.AccountID)
		assert.Equal(t, "Mum", b.Name)
		assert.WithinDuration(t, time.Now(), b.CreatedAt, time.Second)
	})
}

func TestService_CreatePaymentLink(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultsToTokenCurrency", func(t *testing.T) {
		f := newServiceFixture()
		accountID := uuid.New()
		f.wallets.On("LinkCodeExists", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)
		f.wallets.On("CreatePaymentLink", mock.Anything, mock.AnythingOfType("*wallet.PaymentLink")).Return(nil)

		link, err := f.svc.CreatePaymentLink(ctx, accountID, "Coffee fund", "Buy me a coffee", "")

		require.NoError(t, err)
		assert.Equal(t, shared.TokenCurrency, link.Currency)
		assert.True(t, link.Active)
		assert.Len(t, link.LinkCode, 12, "Six random bytes hex encoded")
	})

	t.Run("FiatLinksRejected", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.svc.CreatePaymentLink(ctx, uuid.New(), "Coffee fund", "", "USD")

		assert.ErrorIs(t, err, domain.ErrUnsupportedLinkCurrency)
		f.wallets.AssertNotCalled(t, "CreatePaymentLink", mock.Anything, mock.Anything)
	})

	t.Run("RetriesOnCodeCollision", func(t *testing.T) {
		f := newServiceFixture()
		f.wallets.On("LinkCodeExists", mock.Anything, mock.AnythingOfType("string")).Return(true, nil).Once()
		f.wallets.On("LinkCodeExists", mock.Anything, mock.AnythingOfType("string")).Return(false, nil).Once()
		f.wallets.On("CreatePaymentLink", mock.Anything, mock.AnythingOfType("*wallet.PaymentLink")).Return(nil)

		link, err := f.svc.CreatePaymentLink(ctx, uuid.New(), "Coffee fund", "", shared.TokenCurrency)

		require.NoError(t, err)
		assert.NotEmpty(t, link.LinkCode)
		f.wallets.AssertExpectations(t)
	})
}

func TestService_ResolvePaymentLink(t *testing.T) {
	f := newServiceFixture()
	owner := fundedAccount(t, "0.5")
	link := &domain.PaymentLink{
		ID:        uuid.New(),
		AccountID: owner.ID,
		Name:      "Coffee fund",
		Currency:  shared.TokenCurrency,
		LinkCode:  "a1b2c3d4e5f6",
		Active:    true,
	}
	f.wallets.On("GetPaymentLinkByCode", mock.Anything, link.LinkCode).Return(link, nil)
	f.accounts.On("GetByID", mock.Anything, owner.ID).Return(owner, nil)

	resolved, username, err := f.svc.ResolvePaymentLink(context.Background(), link.LinkCode)

	require.NoError(t, err)
	assert.Same(t, link, resolved)
	assert.Equal(t, "olamide", username)
}
