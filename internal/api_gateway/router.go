package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aqqutelabs/gotoken-ledger/internal/api_gateway/handler"
	"github.com/aqqutelabs/gotoken-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	walletHandler *handler.WalletHandler,
	taskHandler *handler.TaskHandler,
	referralHandler *handler.ReferralHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Wallet operations scoped to an account
		accounts := v1.Group("/accounts/:id")
		{
			accounts.GET("", walletHandler.GetAccount)
			accounts.GET("/entries", walletHandler.GetHistory)
			accounts.POST("/swap", walletHandler.Swap)
			accounts.POST("/withdraw", walletHandler.Withdraw)
			accounts.POST("/send", walletHandler.Send)

			accounts.POST("/beneficiaries", walletHandler.AddBeneficiary)
			accounts.GET("/beneficiaries", walletHandler.ListBeneficiaries)
			accounts.POST("/payment-links", walletHandler.CreatePaymentLink)

			accounts.GET("/referral", referralHandler.GetInfo)
			accounts.POST("/verify", referralHandler.Verify)

			accounts.POST("/tasks/:taskId/submit", taskHandler.Submit)
			accounts.GET("/attempts", taskHandler.ListAttempts)
		}

		// Scan-to-pay link resolution
		v1.GET("/payment-links/:code", walletHandler.ResolvePaymentLink)

		// Task catalog and review operations
		tasks := v1.Group("/tasks")
		{
			tasks.GET("", taskHandler.ListTasks)
		}
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/:id/review", taskHandler.Review)
			attempts.POST("/:id/complete", taskHandler.Complete)
			attempts.POST("/:id/reject", taskHandler.Reject)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
