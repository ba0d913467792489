package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domain "github.com/aqqutelabs/gotoken-ledger/internal/domain/notification"
	"github.com/aqqutelabs/gotoken-ledger/internal/platform/messaging/producers"
)

// Sink delivers notifications to users. Delivery is best-effort: callers
// invoke Notify after their transaction commits and ignore its outcome.
type Sink interface {
	Notify(ctx context.Context, accountID uuid.UUID, kind domain.EventKind, message string, data map[string]any)
}

// FanoutSink persists a notification document and publishes a wallet
// event for downstream consumers. Either leg may fail independently.
type FanoutSink struct {
	repo      domain.Repository
	publisher producers.MessagePublisher
	logger    *slog.Logger
}

// NewFanoutSink creates a sink writing to MongoDB and Kafka. The
// publisher may be nil, in which case only documents are stored.
func NewFanoutSink(logger *slog.Logger, repo domain.Repository, publisher producers.MessagePublisher) *FanoutSink {
	return &FanoutSink{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

type walletEvent struct {
	AccountID uuid.UUID        `json:"account_id"`
	Kind      domain.EventKind `json:"kind"`
	Message   string           `json:"message"`
	Data      map[string]any   `json:"data,omitempty"`
	At        time.Time        `json:"at"`
}

func (s *FanoutSink) Notify(ctx context.Context, accountID uuid.UUID, kind domain.EventKind, message string, data map[string]any) {
	n := &domain.Notification{
		ID:        uuid.New(),
		AccountID: accountID,
		Kind:      kind,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn("Failed to store notification",
			"account_id", accountID.String(),
			"kind", string(kind),
			"error", err)
	}

	if s.publisher == nil {
		return
	}

	event := walletEvent{
		AccountID: accountID,
		Kind:      kind,
		Message:   message,
		Data:      data,
		At:        n.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, accountID.String(), event); err != nil {
		s.logger.Warn("Failed to publish wallet event",
			"account_id", accountID.String(),
			"kind", string(kind),
			"error", err)
	}
}
