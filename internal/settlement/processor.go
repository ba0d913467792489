package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	ledgerdomain "github.com/aqqutelabs/gotoken-ledger/internal/domain/ledger"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/notification"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
	"github.com/aqqutelabs/gotoken-ledger/internal/ledger"
	notify "github.com/aqqutelabs/gotoken-ledger/internal/notification"
)

// Event is a gateway settlement callback delivered over Kafka
type Event struct {
	// Reference is the gateway's reference for the transfer
	Reference string `json:"reference"`
	// EntryID is our ledger entry ID, echoed back by the gateway
	EntryID       string    `json:"entry_id,omitempty"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Processor applies settlement outcomes to pending ledger entries
type Processor interface {
	Process(ctx context.Context, event *Event) error
}

type processor struct {
	ledger *ledger.Service
	sink   notify.Sink
	logger *slog.Logger
}

// NewProcessor creates the settlement processor
func NewProcessor(logger *slog.Logger, ledgerSvc *ledger.Service, sink notify.Sink) Processor {
	return &processor{
		ledger: ledgerSvc,
		sink:   sink,
		logger: logger,
	}
}

// Process resolves the entry the event refers to and settles it. A
// success completes the entry; a failure refunds and fails it. Repeated
// delivery of the same event is a no-op.
func (p *processor) Process(ctx context.Context, event *Event) error {
	entry, err := p.resolveEntry(ctx, event)
	if err != nil {
		return err
	}

	var settled *ledgerdomain.Entry
	switch event.Status {
	case "success":
		settled, err = p.ledger.Settle(ctx, entry.ID, shared.EntryStatusCompleted, event.Reference, "")
	case "failed":
		settled, err = p.ledger.Reverse(ctx, entry.ID, event.Reference, event.FailureReason)
	default:
		return fmt.Errorf("unrecognized settlement status %q for reference %s", event.Status, event.Reference)
	}
	if err != nil {
		return err
	}

	p.logger.Info("Applied settlement",
		"entry_id", settled.ID.String(),
		"reference", event.Reference,
		"status", string(settled.Status))

	p.sink.Notify(ctx, settled.AccountID, notification.EventTransactionStatus,
		fmt.Sprintf("Your %s of %s GoToken is %s", settled.Kind, settled.AmountToken.Abs().String(), settled.Status),
		map[string]any{"entry_id": settled.ID.String(), "status": string(settled.Status)})
	return nil
}

func (p *processor) resolveEntry(ctx context.Context, event *Event) (*ledgerdomain.Entry, error) {
	if event.EntryID != "" {
		id, err := uuid.Parse(event.EntryID)
		if err == nil {
			entry, err := p.ledger.GetByEntryID(ctx, id)
			if err == nil {
				return entry, nil
			}
			p.logger.Warn("Settlement entry ID did not resolve, falling back to reference",
				"entry_id", event.EntryID,
				"error", err)
		}
	}
	return p.ledger.GetByExternalRef(ctx, event.Reference)
}
