package task

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodeTask() *Task {
	return &Task{
		ID:               uuid.New(),
		Topic:            "Follow us on X",
		Active:           true,
		SubmissionMethod: SubmissionMethodCode,
		ExpectedCode:     "GT-2024",
		RewardToken:      decimal.RequireFromString("0.002"),
		RewardFiat:       decimal.RequireFromString("83.33"),
		CreatedAt:        time.Now(),
	}
}

func TestNewAttempt(t *testing.T) {
	accountID := uuid.New()
	taskID := uuid.New()

	a := NewAttempt(accountID, taskID)

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.Equal(t, accountID, a.AccountID)
	assert.Equal(t, taskID, a.TaskID)
	assert.Equal(t, AttemptStatusPendingSubmission, a.Status)
	assert.Nil(t, a.CompletedAt)
}

func TestAttempt_Submit(t *testing.T) {
	t.Run("SnapshotsRewardsFromTask", func(t *testing.T) {
		task := newCodeTask()
		a := NewAttempt(uuid.New(), task.ID)

		err := a.Submit(task, "GT-2024")

		require.NoError(t, err)
		assert.Equal(t, AttemptStatusSubmitted, a.Status)
		assert.Equal(t, "GT-2024", a.Proof)
		assert.True(t, a.RewardToken.Equal(task.RewardToken))
		assert.True(t, a.RewardFiat.Equal(task.RewardFiat))
	})

	t.Run("ResubmitAfterRejection", func(t *testing.T) {
		task := newCodeTask()
		a := NewAttempt(uuid.New(), task.ID)
		require.NoError(t, a.Submit(task, "wrong"))
		require.NoError(t, a.MarkRejected("incorrect code"))

		err := a.Submit(task, "GT-2024")

		require.NoError(t, err)
		assert.Equal(t, AttemptStatusSubmitted, a.Status)
		assert.Equal(t, "GT-2024", a.Proof)
	})

	t.Run("AlreadySubmitted", func(t *testing.T) {
		task := newCodeTask()
		a := NewAttempt(uuid.New(), task.ID)
		require.NoError(t, a.Submit(task, "proof"))

		err := a.Submit(task, "proof again")

		assert.ErrorIs(t, err, ErrAlreadyUnderReview)
	})

	t.Run("AlreadyUnderReview", func(t *testing.T) {
		task := newCodeTask()
		a := NewAttempt(uuid.New(), task.ID)
		require.NoError(t, a.Submit(task, "proof"))
		require.NoError(t, a.MarkUnderReview())

		err := a.Submit(task, "proof again")

		assert.ErrorIs(t, err, ErrAlreadyUnderReview)
	})

	t.Run("AlreadyCompleted", func(t *testing.T) {
		task := newCodeTask()
		a := NewAttempt(uuid.New(), task.ID)
		require.NoError(t, a.Submit(task, "proof"))
		require.NoError(t, a.MarkCompleted(time.Now()))

		err := a.Submit(task, "proof again")

		assert.ErrorIs(t, err, ErrAlreadyCompleted)
	})
}

func TestAttempt_MarkCompleted(t *testing.T) {
	t.Run("SetsCompletionTime", func(t *testing.T) {
		task := newCodeTask()
		a := NewAttempt(uuid.New(), task.ID)
		require.NoError(t, a.Submit(task, "proof"))

		at := time.Now()
		err := a.MarkCompleted(at)

		require.NoError(t, err)
		assert.Equal(t, AttemptStatusCompleted, a.Status)
		require.NotNil(t, a.CompletedAt)
		assert.Equal(t, at, *a.CompletedAt)
	})

	t.Run("CompletedIsTerminal", func(t *testing.T) {
		task := newCodeTask()
		a := NewAttempt(uuid.New(), task.ID)
		require.NoError(t, a.Submit(task, "proof"))
		require.NoError(t, a.MarkCompleted(time.Now()))

		assert.ErrorIs(t, a.MarkCompleted(time.Now()), ErrAlreadyCompleted)
		assert.ErrorIs(t, a.MarkRejected("too late"), ErrAlreadyCompleted)
		assert.ErrorIs(t, a.MarkUnderReview(), ErrAlreadyCompleted)
	})

	t.Run("RejectedCannotComplete", func(t *testing.T) {
		task := newCodeTask()
		a := NewAttempt(uuid.New(), task.ID)
		require.NoError(t, a.Submit(task, "proof"))
		require.NoError(t, a.MarkRejected("bad proof"))

		err := a.MarkCompleted(time.Now())

		assert.ErrorIs(t, err, ErrAlreadyRejected)
	})
}

func TestAttempt_MarkRejected(t *testing.T) {
	task := newCodeTask()
	a := NewAttempt(uuid.New(), task.ID)
	require.NoError(t, a.Submit(task, "proof"))
	require.NoError(t, a.MarkUnderReview())

	err := a.MarkRejected("screenshot does not show the follow")

	require.NoError(t, err)
	assert.Equal(t, AttemptStatusRejected, a.Status)
	assert.Equal(t, "screenshot does not show the follow", a.ReviewNotes)
}
