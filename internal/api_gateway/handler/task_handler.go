package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aqqutelabs/gotoken-ledger/internal/domain/task"
	"github.com/aqqutelabs/gotoken-ledger/internal/taskreward"
)

// TaskHandler handles HTTP requests for tasks and reward attempts
type TaskHandler struct {
	engine *taskreward.Engine
	logger *slog.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(logger *slog.Logger, engine *taskreward.Engine) *TaskHandler {
	return &TaskHandler{
		engine: engine,
		logger: logger,
	}
}

// ListTasks returns active tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	page, perPage := parsePagination(c)

	tasks, err := h.engine.ListTasks(c.Request.Context(), perPage, (page-1)*perPage)
	if err != nil {
		h.logger.Error("Failed to list tasks", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, tasks)
}

// Submit records proof of task completion for an account
func (h *TaskHandler) Submit(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		RespondBadRequest(c, "Invalid task ID")
		return
	}

	var req SubmitTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	attempt, err := h.engine.Submit(c.Request.Context(), accountID, taskID, req.Proof)
	if err != nil {
		h.respondError(c, attempt, err)
		return
	}

	RespondOK(c, attempt)
}

// ListAttempts returns an account's attempts, optionally filtered by status
func (h *TaskHandler) ListAttempts(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	page, perPage := parsePagination(c)
	status := task.AttemptStatus(c.Query("status"))

	attempts, err := h.engine.ListAttempts(c.Request.Context(), accountID, status, perPage, (page-1)*perPage)
	if err != nil {
		h.logger.Error("Failed to list attempts", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, attempts)
}

// Review moves a submitted attempt to under_review
func (h *TaskHandler) Review(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid attempt ID")
		return
	}

	attempt, err := h.engine.Review(c.Request.Context(), attemptID)
	if err != nil {
		h.respondError(c, nil, err)
		return
	}

	RespondOK(c, attempt)
}

// Complete approves an attempt and pays the reward
func (h *TaskHandler) Complete(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid attempt ID")
		return
	}

	attempt, err := h.engine.Complete(c.Request.Context(), attemptID)
	if err != nil {
		h.respondError(c, nil, err)
		return
	}

	RespondOK(c, attempt)
}

// Reject declines an attempt with the reviewer's note
func (h *TaskHandler) Reject(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid attempt ID")
		return
	}

	var req RejectAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	attempt, err := h.engine.Reject(c.Request.Context(), attemptID, req.Note)
	if err != nil {
		h.respondError(c, nil, err)
		return
	}

	RespondOK(c, attempt)
}

func (h *TaskHandler) respondError(c *gin.Context, attempt *task.Attempt, err error) {
	var (
		taskNotFound    task.ErrTaskNotFound
		attemptNotFound task.ErrAttemptNotFound
	)

	switch {
	case errors.Is(err, task.ErrIncorrectCode):
		// The rejected attempt rides along so the client can resubmit
		RespondUnprocessable(c, "INCORRECT_CODE", "The submitted code does not match")
	case errors.Is(err, task.ErrTaskInactive):
		RespondUnprocessable(c, "TASK_INACTIVE", "This task is not currently active")
	case errors.Is(err, task.ErrAlreadyCompleted):
		RespondConflict(c, "Task attempt already completed")
	case errors.Is(err, task.ErrAlreadyUnderReview):
		RespondConflict(c, "Task attempt already submitted and under review")
	case errors.Is(err, task.ErrAlreadyRejected):
		RespondConflict(c, "Task attempt was rejected")
	case errors.As(err, &taskNotFound):
		RespondNotFound(c, "Task not found")
	case errors.As(err, &attemptNotFound):
		RespondNotFound(c, "Task attempt not found")
	default:
		h.logger.Error("Task operation failed", "error", err)
		RespondInternalError(c)
	}
}
