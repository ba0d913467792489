package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aqqutelabs/gotoken-ledger/internal/conversion"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/account"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
	walletdomain "github.com/aqqutelabs/gotoken-ledger/internal/domain/wallet"
	"github.com/aqqutelabs/gotoken-ledger/internal/wallet"
)

// WalletHandler handles HTTP requests for wallet operations
type WalletHandler struct {
	walletService *wallet.Service
	logger        *slog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, walletService *wallet.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		logger:        logger,
	}
}

// GetAccount returns the account's balance and cached fiat equivalent
func (h *WalletHandler) GetAccount(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	acct, err := h.walletService.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acct))
}

// GetHistory returns the account's ledger entries, newest first
func (h *WalletHandler) GetHistory(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	page, perPage := parsePagination(c)
	kind := shared.EntryKind(c.Query("kind"))

	entries, total, err := h.walletService.History(c.Request.Context(), accountID, kind, perPage, (page-1)*perPage)
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, mapEntriesToResponse(entries), page, perPage, int(total))
}

// Swap converts GoToken to a fiat value snapshot
func (h *WalletHandler) Swap(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	var req SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.walletService.Swap(c.Request.Context(), accountID, wallet.SwapParams{
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		Amount:       req.Amount,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// Withdraw moves tokens to an external rail
func (h *WalletHandler) Withdraw(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.walletService.Withdraw(c.Request.Context(), accountID, wallet.WithdrawParams{
		Password:    req.Password,
		Channel:     shared.Channel(req.Channel),
		AmountToken: req.AmountToken,
		AmountFiat:  req.AmountFiat,
		Destination: req.Destination,
		Narration:   req.Narration,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	// A pending entry means the gateway outcome arrives via settlement
	if entry.Status == shared.EntryStatusPending {
		RespondAccepted(c, mapEntryToResponse(entry))
		return
	}
	RespondOK(c, mapEntryToResponse(entry))
}

// Send pays another party over an external rail or a payment link
func (h *WalletHandler) Send(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.walletService.Send(c.Request.Context(), accountID, wallet.SendParams{
		Password:        req.Password,
		Channel:         shared.Channel(req.Channel),
		AmountToken:     req.AmountToken,
		AmountFiat:      req.AmountFiat,
		LinkCode:        req.LinkCode,
		Destination:     req.Destination,
		Narration:       req.Narration,
		SaveBeneficiary: req.SaveBeneficiary,
		BeneficiaryName: req.BeneficiaryName,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if entry.Status == shared.EntryStatusPending {
		RespondAccepted(c, mapEntryToResponse(entry))
		return
	}
	RespondOK(c, mapEntryToResponse(entry))
}

// AddBeneficiary saves destination details for reuse
func (h *WalletHandler) AddBeneficiary(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	var req CreateBeneficiaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	b, err := h.walletService.AddBeneficiary(c.Request.Context(), accountID, req.Name, req.Type, req.Details)
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondCreated(c, b)
}

// ListBeneficiaries returns the account's saved beneficiaries
func (h *WalletHandler) ListBeneficiaries(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	beneficiaries, err := h.walletService.ListBeneficiaries(c.Request.Context(), accountID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondOK(c, beneficiaries)
}

// CreatePaymentLink mints a scan-to-pay link
func (h *WalletHandler) CreatePaymentLink(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	var req CreatePaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	link, err := h.walletService.CreatePaymentLink(c.Request.Context(), accountID, req.Name, req.Description, req.Currency)
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondCreated(c, link)
}

// ResolvePaymentLink returns an active link and its owner's display name
func (h *WalletHandler) ResolvePaymentLink(c *gin.Context) {
	linkCode := c.Param("code")

	link, ownerName, err := h.walletService.ResolvePaymentLink(c.Request.Context(), linkCode)
	if err != nil {
		h.respondError(c, err)
		return
	}

	RespondOK(c, gin.H{"link": link, "owner": ownerName})
}

// respondError maps domain errors to HTTP responses
func (h *WalletHandler) respondError(c *gin.Context, err error) {
	var (
		accNotFound  account.ErrAccountNotFound
		linkNotFound walletdomain.ErrPaymentLinkNotFound
		rateErr      conversion.ErrRateUnavailable
	)

	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		RespondUnauthorized(c, "Incorrect password")
	case errors.Is(err, account.ErrInsufficientFunds):
		RespondUnprocessable(c, "INSUFFICIENT_FUNDS", "Balance does not cover the amount plus fees")
	case errors.Is(err, account.ErrInvalidAmount),
		errors.Is(err, walletdomain.ErrMissingAmount),
		errors.Is(err, walletdomain.ErrUnsupportedSource),
		errors.Is(err, walletdomain.ErrUnsupportedChannel),
		errors.Is(err, walletdomain.ErrUnsupportedLinkCurrency),
		errors.Is(err, walletdomain.ErrSelfPayment):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, walletdomain.ErrDuplicateBeneficiary):
		RespondConflict(c, err.Error())
	case errors.As(err, &accNotFound):
		RespondNotFound(c, "Account not found")
	case errors.As(err, &linkNotFound):
		RespondNotFound(c, "Payment link not found or inactive")
	case errors.As(err, &rateErr):
		RespondWithError(c, http.StatusServiceUnavailable, "RATE_UNAVAILABLE", rateErr.Error())
	default:
		h.logger.Error("Wallet operation failed", "error", err)
		RespondInternalError(c)
	}
}

func parseAccountID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return uuid.Nil, false
	}
	return id, true
}

func parsePagination(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
