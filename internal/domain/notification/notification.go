package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventKind categorizes notification events
type EventKind string

const (
	EventTransactionStatus EventKind = "transaction_status"
	EventTaskSubmitted     EventKind = "task_submitted"
	EventTaskCompleted     EventKind = "task_completed"
	EventTaskRejected      EventKind = "task_rejected"
	EventReferralJoined    EventKind = "referral_joined"
	EventFundsReceived     EventKind = "funds_received"
)

// Notification is a best-effort message to a user. Delivery failures never
// affect ledger state.
type Notification struct {
	ID        uuid.UUID      `json:"id" bson:"_id"`
	AccountID uuid.UUID      `json:"account_id" bson:"account_id"`
	Kind      EventKind      `json:"kind" bson:"kind"`
	Message   string         `json:"message" bson:"message"`
	Data      map[string]any `json:"data,omitempty" bson:"data,omitempty"`
	Read      bool           `json:"read" bson:"read"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// Repository defines notification document persistence
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}
