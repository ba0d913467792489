package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aqqutelabs/gotoken-ledger/internal/domain/task"
	"github.com/aqqutelabs/gotoken-ledger/internal/platform/persistence"
)

// TaskRepository implements the task.Repository interface for PostgreSQL
type TaskRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTaskRepository creates a new PostgreSQL task repository
func NewTaskRepository(logger *slog.Logger, db *persistence.PostgresDB) task.Repository {
	return &TaskRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *TaskRepository) WithTx(tx pgx.Tx) task.Repository {
	return &TaskRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateTask stores a new task definition
func (r *TaskRepository) CreateTask(ctx context.Context, t *task.Task) error {
	query := `
		INSERT INTO tasks (id, topic, active, submission_method, expected_code, reward_token, reward_fiat, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		t.ID, t.Topic, t.Active, string(t.SubmissionMethod), t.ExpectedCode, t.RewardToken, t.RewardFiat, t.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create task", "error", err)
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetTask retrieves a task definition by ID
func (r *TaskRepository) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	query := `
		SELECT id, topic, active, submission_method, expected_code, reward_token, reward_fiat, created_at
		FROM tasks
		WHERE id = $1
	`

	var t task.Task
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Topic, &t.Active, &t.SubmissionMethod, &t.ExpectedCode, &t.RewardToken, &t.RewardFiat, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, task.ErrTaskNotFound{TaskID: id}
		}
		r.logger.Error("Failed to get task", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return &t, nil
}

// ListActiveTasks retrieves paginated active task definitions
func (r *TaskRepository) ListActiveTasks(ctx context.Context, limit, offset int) ([]*task.Task, error) {
	query := `
		SELECT id, topic, active, submission_method, expected_code, reward_token, reward_fiat, created_at
		FROM tasks
		WHERE active
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list active tasks", "error", err)
		return nil, fmt.Errorf("failed to list active tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		var t task.Task
		if err := rows.Scan(&t.ID, &t.Topic, &t.Active, &t.SubmissionMethod, &t.ExpectedCode, &t.RewardToken, &t.RewardFiat, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}

	return tasks, nil
}

const attemptColumns = `id, account_id, task_id, status, proof, reward_token, reward_fiat,
		review_notes, completed_at, created_at, updated_at`

func scanAttempt(row pgx.Row) (*task.Attempt, error) {
	var a task.Attempt
	err := row.Scan(
		&a.ID,
		&a.AccountID,
		&a.TaskID,
		&a.Status,
		&a.Proof,
		&a.RewardToken,
		&a.RewardFiat,
		&a.ReviewNotes,
		&a.CompletedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAttempt retrieves the account's attempt for a task. Returns nil, nil
// when no attempt exists; the unique constraint on (account_id, task_id)
// guarantees at most one row.
func (r *TaskRepository) GetAttempt(ctx context.Context, accountID, taskID uuid.UUID) (*task.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM task_attempts WHERE account_id = $1 AND task_id = $2`

	a, err := scanAttempt(r.querier.QueryRow(ctx, query, accountID, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get task attempt", "account_id", accountID.String(), "task_id", taskID.String(), "error", err)
		return nil, fmt.Errorf("failed to get task attempt: %w", err)
	}

	return a, nil
}

// GetAttemptByID retrieves an attempt by its ID
func (r *TaskRepository) GetAttemptByID(ctx context.Context, id uuid.UUID) (*task.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM task_attempts WHERE id = $1`

	a, err := scanAttempt(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, task.ErrAttemptNotFound{AttemptID: id}
		}
		r.logger.Error("Failed to get task attempt", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get task attempt: %w", err)
	}

	return a, nil
}

// CreateAttempt stores a new task attempt
func (r *TaskRepository) CreateAttempt(ctx context.Context, a *task.Attempt) error {
	query := `
		INSERT INTO task_attempts (` + attemptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		a.ID, a.AccountID, a.TaskID, string(a.Status), a.Proof, a.RewardToken, a.RewardFiat,
		a.ReviewNotes, a.CompletedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create task attempt", "error", err)
		return fmt.Errorf("failed to create task attempt: %w", err)
	}

	return nil
}

// UpdateAttempt persists an attempt's state transition
func (r *TaskRepository) UpdateAttempt(ctx context.Context, a *task.Attempt) error {
	query := `
		UPDATE task_attempts
		SET status = $1, proof = $2, reward_token = $3, reward_fiat = $4,
		    review_notes = $5, completed_at = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := r.querier.Exec(ctx, query,
		string(a.Status), a.Proof, a.RewardToken, a.RewardFiat,
		a.ReviewNotes, a.CompletedAt, a.UpdatedAt, a.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update task attempt", "id", a.ID.String(), "error", err)
		return fmt.Errorf("failed to update task attempt: %w", err)
	}

	if result.RowsAffected() == 0 {
		return task.ErrAttemptNotFound{AttemptID: a.ID}
	}

	return nil
}

// ListAttempts retrieves paginated attempts for an account, newest first.
// An empty status matches all statuses.
func (r *TaskRepository) ListAttempts(ctx context.Context, accountID uuid.UUID, status task.AttemptStatus, limit, offset int) ([]*task.Attempt, error) {
	query := `SELECT ` + attemptColumns + `
		FROM task_attempts
		WHERE account_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.querier.Query(ctx, query, accountID, string(status), limit, offset)
	if err != nil {
		r.logger.Error("Failed to list task attempts", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list task attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*task.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read task attempts: %w", err)
	}

	return attempts, nil
}
