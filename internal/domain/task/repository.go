package task

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines task and attempt persistence operations
type Repository interface {
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*Task, error)
	ListActiveTasks(ctx context.Context, limit, offset int) ([]*Task, error)

	// GetAttempt returns nil, nil when the account has no attempt for the task
	GetAttempt(ctx context.Context, accountID, taskID uuid.UUID) (*Attempt, error)
	GetAttemptByID(ctx context.Context, id uuid.UUID) (*Attempt, error)
	CreateAttempt(ctx context.Context, a *Attempt) error
	UpdateAttempt(ctx context.Context, a *Attempt) error
	ListAttempts(ctx context.Context, accountID uuid.UUID, status AttemptStatus, limit, offset int) ([]*Attempt, error)

	WithTx(tx pgx.Tx) Repository
}
