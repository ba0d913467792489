package taskreward

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aqqutelabs/gotoken-ledger/internal/domain/notification"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/task"
	"github.com/aqqutelabs/gotoken-ledger/internal/ledger"
	notify "github.com/aqqutelabs/gotoken-ledger/internal/notification"
	"github.com/aqqutelabs/gotoken-ledger/internal/platform/persistence"
)

// Engine drives the task attempt state machine and pays out rewards. It
// is the only producer of reward ledger entries.
type Engine struct {
	db     persistence.TxRunner
	tasks  task.Repository
	ledger *ledger.Service
	sink   notify.Sink
	logger *slog.Logger
}

// NewEngine creates the task reward engine
func NewEngine(logger *slog.Logger, db persistence.TxRunner, tasks task.Repository, ledgerSvc *ledger.Service, sink notify.Sink) *Engine {
	return &Engine{
		db:     db,
		tasks:  tasks,
		ledger: ledgerSvc,
		sink:   sink,
		logger: logger,
	}
}

// Submit records proof for a task. Code-verified tasks resolve
// synchronously: a matching code completes the attempt and pays the
// reward, a mismatch rejects it and returns ErrIncorrectCode. Other
// submission methods leave the attempt awaiting review.
func (e *Engine) Submit(ctx context.Context, accountID, taskID uuid.UUID, proof string) (*task.Attempt, error) {
	t, err := e.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, task.ErrTaskInactive
	}

	attempt, err := e.tasks.GetAttempt(ctx, accountID, taskID)
	if err != nil {
		return nil, err
	}

	isNew := attempt == nil
	if isNew {
		attempt = task.NewAttempt(accountID, taskID)
	}

	if err := attempt.Submit(t, proof); err != nil {
		return nil, err
	}

	if isNew {
		if err := e.tasks.CreateAttempt(ctx, attempt); err != nil {
			return nil, err
		}
	} else {
		if err := e.tasks.UpdateAttempt(ctx, attempt); err != nil {
			return nil, err
		}
	}

	e.logger.Info("Recorded task submission",
		"account_id", accountID.String(),
		"task_id", taskID.String(),
		"attempt_id", attempt.ID.String(),
		"method", string(t.SubmissionMethod))

	if t.SubmissionMethod == task.SubmissionMethodCode {
		if proof != t.ExpectedCode {
			if err := attempt.MarkRejected("incorrect code"); err != nil {
				return nil, err
			}
			if err := e.tasks.UpdateAttempt(ctx, attempt); err != nil {
				return nil, err
			}
			return attempt, task.ErrIncorrectCode
		}
		return e.Complete(ctx, attempt.ID)
	}

	e.sink.Notify(ctx, accountID, notification.EventTaskSubmitted,
		fmt.Sprintf("Your submission for %q is awaiting review", t.Topic),
		map[string]any{"task_id": taskID.String(), "attempt_id": attempt.ID.String()})
	return attempt, nil
}

// Complete finalizes an attempt and credits the snapshotted reward. The
// attempt transition and the reward credit commit in one transaction, so
// an attempt can never be completed without its reward or vice versa.
func (e *Engine) Complete(ctx context.Context, attemptID uuid.UUID) (*task.Attempt, error) {
	var attempt *task.Attempt
	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		tasks := e.tasks.WithTx(tx)

		var txErr error
		attempt, txErr = tasks.GetAttemptByID(ctx, attemptID)
		if txErr != nil {
			return txErr
		}

		now := time.Now()
		if txErr = attempt.MarkCompleted(now); txErr != nil {
			return txErr
		}
		if txErr = tasks.UpdateAttempt(ctx, attempt); txErr != nil {
			return txErr
		}

		taskID := attempt.TaskID
		_, txErr = e.ledger.CreditTx(ctx, tx, ledger.CreditParams{
			AccountID:   attempt.AccountID,
			Kind:        shared.EntryKindReward,
			Amount:      attempt.RewardToken,
			RelatedID:   &taskID,
			RelatedType: shared.RelatedEntityTask,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Completed task attempt",
		"attempt_id", attemptID.String(),
		"account_id", attempt.AccountID.String(),
		"reward", attempt.RewardToken.String())

	e.sink.Notify(ctx, attempt.AccountID, notification.EventTaskCompleted,
		fmt.Sprintf("You earned %s GoToken for completing a task", attempt.RewardToken.String()),
		map[string]any{"task_id": attempt.TaskID.String(), "attempt_id": attempt.ID.String()})
	return attempt, nil
}

// Review moves a submitted attempt to under_review
func (e *Engine) Review(ctx context.Context, attemptID uuid.UUID) (*task.Attempt, error) {
	attempt, err := e.tasks.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if err := attempt.MarkUnderReview(); err != nil {
		return nil, err
	}
	if err := e.tasks.UpdateAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// Reject marks an attempt rejected with the reviewer's note. No ledger
// entry is written.
func (e *Engine) Reject(ctx context.Context, attemptID uuid.UUID, note string) (*task.Attempt, error) {
	attempt, err := e.tasks.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if err := attempt.MarkRejected(note); err != nil {
		return nil, err
	}
	if err := e.tasks.UpdateAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	e.logger.Info("Rejected task attempt",
		"attempt_id", attemptID.String(),
		"account_id", attempt.AccountID.String())

	e.sink.Notify(ctx, attempt.AccountID, notification.EventTaskRejected,
		"Your task submission was not approved",
		map[string]any{"task_id": attempt.TaskID.String(), "attempt_id": attempt.ID.String(), "note": note})
	return attempt, nil
}

// ListTasks returns active tasks for display
func (e *Engine) ListTasks(ctx context.Context, limit, offset int) ([]*task.Task, error) {
	return e.tasks.ListActiveTasks(ctx, limit, offset)
}

// ListAttempts returns an account's attempts, optionally filtered by status
func (e *Engine) ListAttempts(ctx context.Context, accountID uuid.UUID, status task.AttemptStatus, limit, offset int) ([]*task.Attempt, error) {
	return e.tasks.ListAttempts(ctx, accountID, status, limit, offset)
}
