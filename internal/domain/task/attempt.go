package task

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State machine errors
var (
	ErrAlreadyCompleted   = errors.New("task attempt already completed")
	ErrAlreadyRejected    = errors.New("task attempt was rejected and cannot be completed")
	ErrAlreadyUnderReview = errors.New("task attempt already submitted and under review")
)

// AttemptStatus defines an attempt's position in the review state machine:
// pending_submission -> submitted -> under_review -> completed | rejected.
// completed and rejected are terminal for rewards; rejected still allows
// resubmission.
type AttemptStatus string

const (
	AttemptStatusPendingSubmission AttemptStatus = "pending_submission"
	AttemptStatusSubmitted         AttemptStatus = "submitted"
	AttemptStatusUnderReview       AttemptStatus = "under_review"
	AttemptStatusCompleted         AttemptStatus = "completed"
	AttemptStatusRejected          AttemptStatus = "rejected"
)

// Attempt tracks one account's try at one task. At most one attempt exists
// per (account, task) pair; resubmission reuses the row while the status
// is pre-terminal.
type Attempt struct {
	ID        uuid.UUID     `json:"id"`
	AccountID uuid.UUID     `json:"account_id"`
	TaskID    uuid.UUID     `json:"task_id"`
	Status    AttemptStatus `json:"status"`
	Proof     string        `json:"proof,omitempty"`
	// Reward amounts are copied from the task at submission time so later
	// task edits cannot retroactively change an earned reward
	RewardToken decimal.Decimal `json:"reward_token"`
	RewardFiat  decimal.Decimal `json:"reward_fiat"`
	ReviewNotes string          `json:"review_notes,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewAttempt creates an attempt in pending_submission
func NewAttempt(accountID, taskID uuid.UUID) *Attempt {
	now := time.Now()
	return &Attempt{
		ID:        uuid.New(),
		AccountID: accountID,
		TaskID:    taskID,
		Status:    AttemptStatusPendingSubmission,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Submit records proof and snapshots the task's current rewards.
// Allowed from pending_submission, submitted is rejected with
// ErrAlreadyUnderReview, completed with ErrAlreadyCompleted; a rejected
// attempt may be resubmitted.
func (a *Attempt) Submit(t *Task, proof string) error {
	switch a.Status {
	case AttemptStatusCompleted:
		return ErrAlreadyCompleted
	case AttemptStatusSubmitted, AttemptStatusUnderReview:
		return ErrAlreadyUnderReview
	}

	a.Proof = proof
	a.Status = AttemptStatusSubmitted
	a.RewardToken = t.RewardToken
	a.RewardFiat = t.RewardFiat
	a.CompletedAt = nil
	a.UpdatedAt = time.Now()
	return nil
}

// MarkUnderReview moves a submitted attempt to under_review
func (a *Attempt) MarkUnderReview() error {
	switch a.Status {
	case AttemptStatusCompleted:
		return ErrAlreadyCompleted
	case AttemptStatusRejected:
		return ErrAlreadyRejected
	}

	a.Status = AttemptStatusUnderReview
	a.UpdatedAt = time.Now()
	return nil
}

// MarkCompleted transitions to the terminal completed state
func (a *Attempt) MarkCompleted(at time.Time) error {
	switch a.Status {
	case AttemptStatusCompleted:
		return ErrAlreadyCompleted
	case AttemptStatusRejected:
		return ErrAlreadyRejected
	}

	a.Status = AttemptStatusCompleted
	a.CompletedAt = &at
	a.UpdatedAt = at
	return nil
}

// MarkRejected records a rejection with the reviewer's note
func (a *Attempt) MarkRejected(note string) error {
	if a.Status == AttemptStatusCompleted {
		return ErrAlreadyCompleted
	}

	a.Status = AttemptStatusRejected
	a.ReviewNotes = note
	a.UpdatedAt = time.Now()
	return nil
}

// ErrAttemptNotFound indicates missing task attempt
type ErrAttemptNotFound struct {
	AttemptID uuid.UUID
}

func (e ErrAttemptNotFound) Error() string {
	return "task attempt not found: " + e.AttemptID.String()
}
