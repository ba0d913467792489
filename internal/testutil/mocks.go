package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/aqqutelabs/gotoken-ledger/internal/domain/account"
	ledgerdomain "github.com/aqqutelabs/gotoken-ledger/internal/domain/ledger"
	notifdomain "github.com/aqqutelabs/gotoken-ledger/internal/domain/notification"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/task"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/wallet"
	"github.com/aqqutelabs/gotoken-ledger/internal/gateway"
)

// MockAccountRepo is a testify mock of account.Repository
type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) Create(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) GetByReferralCode(ctx context.Context, code string) (*account.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) Update(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) AddReferralStats(ctx context.Context, id uuid.UUID, bonus decimal.Decimal) error {
	args := m.Called(ctx, id, bonus)
	return args.Error(0)
}

func (m *MockAccountRepo) CountReferred(ctx context.Context, referrerID uuid.UUID, verifiedOnly bool) (int64, error) {
	args := m.Called(ctx, referrerID, verifiedOnly)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepo) WithTx(tx pgx.Tx) account.Repository {
	args := m.Called(tx)
	return args.Get(0).(account.Repository)
}

// MockLedgerRepo is a testify mock of the ledger entry repository
type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Create(ctx context.Context, entry *ledgerdomain.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*ledgerdomain.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerdomain.Entry), args.Error(1)
}

func (m *MockLedgerRepo) GetByExternalRef(ctx context.Context, externalRef string) (*ledgerdomain.Entry, error) {
	args := m.Called(ctx, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerdomain.Entry), args.Error(1)
}

func (m *MockLedgerRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID, kind shared.EntryKind, limit, offset int) ([]*ledgerdomain.Entry, error) {
	args := m.Called(ctx, accountID, kind, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledgerdomain.Entry), args.Error(1)
}

func (m *MockLedgerRepo) CountByAccountID(ctx context.Context, accountID uuid.UUID, kind shared.EntryKind) (int64, error) {
	args := m.Called(ctx, accountID, kind)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) ExistsByKindAndRelated(ctx context.Context, accountID uuid.UUID, kind shared.EntryKind, relatedID uuid.UUID) (bool, error) {
	args := m.Called(ctx, accountID, kind, relatedID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.EntryStatus, externalRef, failureReason string) error {
	args := m.Called(ctx, id, status, externalRef, failureReason)
	return args.Error(0)
}

func (m *MockLedgerRepo) SetExternalRef(ctx context.Context, id uuid.UUID, externalRef string) error {
	args := m.Called(ctx, id, externalRef)
	return args.Error(0)
}

func (m *MockLedgerRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*ledgerdomain.Entry, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledgerdomain.Entry), args.Error(1)
}

func (m *MockLedgerRepo) WithTx(tx pgx.Tx) ledgerdomain.Repository {
	args := m.Called(tx)
	return args.Get(0).(ledgerdomain.Repository)
}

// MockTaskRepo is a testify mock of task.Repository
type MockTaskRepo struct {
	mock.Mock
}

func (m *MockTaskRepo) CreateTask(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepo) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepo) ListActiveTasks(ctx context.Context, limit, offset int) ([]*task.Task, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepo) GetAttempt(ctx context.Context, accountID, taskID uuid.UUID) (*task.Attempt, error) {
	args := m.Called(ctx, accountID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Attempt), args.Error(1)
}

func (m *MockTaskRepo) GetAttemptByID(ctx context.Context, id uuid.UUID) (*task.Attempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Attempt), args.Error(1)
}

func (m *MockTaskRepo) CreateAttempt(ctx context.Context, a *task.Attempt) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockTaskRepo) UpdateAttempt(ctx context.Context, a *task.Attempt) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockTaskRepo) ListAttempts(ctx context.Context, accountID uuid.UUID, status task.AttemptStatus, limit, offset int) ([]*task.Attempt, error) {
	args := m.Called(ctx, accountID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Attempt), args.Error(1)
}

func (m *MockTaskRepo) WithTx(tx pgx.Tx) task.Repository {
	args := m.Called(tx)
	return args.Get(0).(task.Repository)
}

// MockWalletRepo is a testify mock of wallet.Repository
type MockWalletRepo struct {
	mock.Mock
}

func (m *MockWalletRepo) CreateBeneficiary(ctx context.Context, b *wallet.Beneficiary) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockWalletRepo) GetBeneficiary(ctx context.Context, accountID uuid.UUID, name, beneficiaryType string) (*wallet.Beneficiary, error) {
	args := m.Called(ctx, accountID, name, beneficiaryType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Beneficiary), args.Error(1)
}

func (m *MockWalletRepo) ListBeneficiaries(ctx context.Context, accountID uuid.UUID) ([]*wallet.Beneficiary, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*wallet.Beneficiary), args.Error(1)
}

func (m *MockWalletRepo) CreatePaymentLink(ctx context.Context, l *wallet.PaymentLink) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockWalletRepo) GetPaymentLinkByCode(ctx context.Context, linkCode string) (*wallet.PaymentLink, error) {
	args := m.Called(ctx, linkCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.PaymentLink), args.Error(1)
}

func (m *MockWalletRepo) LinkCodeExists(ctx context.Context, linkCode string) (bool, error) {
	args := m.Called(ctx, linkCode)
	return args.Bool(0), args.Error(1)
}

func (m *MockWalletRepo) WithTx(tx pgx.Tx) wallet.Repository {
	args := m.Called(tx)
	return args.Get(0).(wallet.Repository)
}

// MockGateway is a testify mock of gateway.PaymentGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Transfer(ctx context.Context, req gateway.TransferRequest) (*gateway.TransferResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.TransferResult), args.Error(1)
}

func (m *MockGateway) Verify(ctx context.Context, reference string) (*gateway.TransferResult, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.TransferResult), args.Error(1)
}

// RecordedNotification captures one Notify call
type RecordedNotification struct {
	AccountID uuid.UUID
	Kind      notifdomain.EventKind
	Message   string
	Data      map[string]any
}

// SinkRecorder is a notification sink that records what it is told
type SinkRecorder struct {
	Notifications []RecordedNotification
}

func (s *SinkRecorder) Notify(_ context.Context, accountID uuid.UUID, kind notifdomain.EventKind, message string, data map[string]any) {
	s.Notifications = append(s.Notifications, RecordedNotification{
		AccountID: accountID,
		Kind:      kind,
		Message:   message,
		Data:      data,
	})
}

// Kinds returns the event kinds recorded, in order
func (s *SinkRecorder) Kinds() []notifdomain.EventKind {
	kinds := make([]notifdomain.EventKind, 0, len(s.Notifications))
	for _, n := range s.Notifications {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}
