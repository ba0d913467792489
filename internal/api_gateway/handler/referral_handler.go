package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/aqqutelabs/gotoken-ledger/internal/domain/account"
	"github.com/aqqutelabs/gotoken-ledger/internal/referral"
)

// ReferralHandler handles HTTP requests for referral information
type ReferralHandler struct {
	engine *referral.Engine
	logger *slog.Logger
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(logger *slog.Logger, engine *referral.Engine) *ReferralHandler {
	return &ReferralHandler{
		engine: engine,
		logger: logger,
	}
}

// Verify marks the account's email as verified. The first verification
// pays the referral bonus when the account joined with a referral code.
func (h *ReferralHandler) Verify(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	if err := h.engine.MarkVerified(c.Request.Context(), accountID); err != nil {
		var accNotFound account.ErrAccountNotFound
		if errors.As(err, &accNotFound) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to verify account", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"verified": true})
}

// GetInfo returns the account's referral summary
func (h *ReferralHandler) GetInfo(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	info, err := h.engine.GetInfo(c.Request.Context(), accountID)
	if err != nil {
		var accNotFound account.ErrAccountNotFound
		if errors.As(err, &accNotFound) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get referral info", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, info)
}
