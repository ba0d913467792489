package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aqqutelabs/gotoken-ledger/internal/config"
	ledgerdomain "github.com/aqqutelabs/gotoken-ledger/internal/domain/ledger"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
	"github.com/aqqutelabs/gotoken-ledger/internal/gateway"
	"github.com/aqqutelabs/gotoken-ledger/internal/ledger"
)

// Reconciler resolves entries stuck in pending. Entries land there when
// a gateway call times out or a settlement callback never arrives; the
// reconciler asks the gateway what actually happened.
type Reconciler struct {
	entries      ledgerdomain.Repository
	ledger       *ledger.Service
	gateway      gateway.PaymentGateway
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
	minAge       time.Duration
}

// NewReconciler creates the pending-entry reconciler
func NewReconciler(cfg *config.ReconcilerConfig, entries ledgerdomain.Repository, ledgerSvc *ledger.Service, gw gateway.PaymentGateway, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		entries:      entries,
		ledger:       ledgerSvc,
		gateway:      gw,
		logger:       logger,
		pollInterval: cfg.PollingInterval,
		batchSize:    cfg.BatchSize,
		minAge:       cfg.MinAge,
	}
}

// Start begins polling until context is canceled
func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("Starting pending-entry reconciler",
		"poll_interval", r.pollInterval.String(),
		"batch_size", r.batchSize,
		"min_age", r.minAge.String())
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Reconciler stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := r.reconcileBatch(ctx); err != nil {
				r.logger.Error("Error during reconciliation batch", "error", err)
			}
		}
	}
}

func (r *Reconciler) reconcileBatch(ctx context.Context) error {
	cutoff := time.Now().Add(-r.minAge)
	entries, err := r.entries.ListPendingOlderThan(ctx, cutoff, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending entries: %w", err)
	}

	if len(entries) == 0 {
		r.logger.Debug("No pending entries to reconcile")
		return nil
	}

	r.logger.Info("Reconciling pending entries", "count", len(entries))

	for _, entry := range entries {
		if err := r.reconcileEntry(ctx, entry); err != nil {
			r.logger.Warn("Failed to reconcile entry",
				"entry_id", entry.ID.String(),
				"error", err)
		}
	}
	return nil
}

func (r *Reconciler) reconcileEntry(ctx context.Context, entry *ledgerdomain.Entry) error {
	reference := entry.ExternalRef
	if reference == "" {
		// Transfers are initiated with our entry ID as the reference
		reference = entry.ID.String()
	}

	result, err := r.gateway.Verify(ctx, reference)
	if err != nil {
		var gwErr gateway.GatewayError
		if errors.As(err, &gwErr) && gwErr.StatusCode == http.StatusNotFound {
			// The gateway never saw this transfer, so the funds never left
			_, revErr := r.ledger.Reverse(ctx, entry.ID, "", "transfer not found at gateway")
			return revErr
		}
		return err
	}

	switch result.Status {
	case gateway.StatusSuccess:
		_, err = r.ledger.Settle(ctx, entry.ID, shared.EntryStatusCompleted, result.ExternalRef, "")
		return err
	case gateway.StatusFailed:
		_, err = r.ledger.Reverse(ctx, entry.ID, result.ExternalRef, result.FailureReason)
		return err
	default:
		r.logger.Debug("Entry still pending at gateway", "entry_id", entry.ID.String())
		return nil
	}
}
