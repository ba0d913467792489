package task

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrTaskInactive  = errors.New("task is currently inactive")
	ErrIncorrectCode = errors.New("incorrect code submitted")
)

// SubmissionMethod defines how proof of completion is provided
type SubmissionMethod string

const (
	SubmissionMethodScreenshot SubmissionMethod = "screenshot"
	SubmissionMethodLink       SubmissionMethod = "link"
	SubmissionMethodCode       SubmissionMethod = "code"
	SubmissionMethodSurvey     SubmissionMethod = "survey"
)

// Task is a campaign definition users earn rewards for completing. The
// ledger core only reads tasks; editing them is an admin concern.
type Task struct {
	ID               uuid.UUID        `json:"id"`
	Topic            string           `json:"topic"`
	Active           bool             `json:"active"`
	SubmissionMethod SubmissionMethod `json:"submission_method"`
	// ExpectedCode is checked synchronously for code-verified tasks
	ExpectedCode string          `json:"-"`
	RewardToken  decimal.Decimal `json:"reward_token"`
	RewardFiat   decimal.Decimal `json:"reward_fiat"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ErrTaskNotFound indicates missing task definition
type ErrTaskNotFound struct {
	TaskID uuid.UUID
}

func (e ErrTaskNotFound) Error() string {
	return "task not found: " + e.TaskID.String()
}
