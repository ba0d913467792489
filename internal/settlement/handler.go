package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aqqutelabs/gotoken-ledger/internal/platform/messaging/producers"
)

// EventHandler handles incoming settlement callback messages from Kafka
type EventHandler struct {
	processor Processor
	dlq       producers.DeadLetterPublisher
	logger    *slog.Logger
}

// NewEventHandler creates a new handler
func NewEventHandler(logger *slog.Logger, processor Processor, dlq producers.DeadLetterPublisher) *EventHandler {
	return &EventHandler{
		processor: processor,
		dlq:       dlq,
		logger:    logger,
	}
}

// HandleMessage processes a Kafka settlement message. Unparseable
// messages go to the DLQ and commit; processing failures return an error
// so the offset stays uncommitted and the message is retried.
func (h *EventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal settlement event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key))

		if h.dlq != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.dlq.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key))
			} else {
				h.logger.Info("Published unprocessable message to DLQ",
					"message_key", string(key),
					"reason", dlqReason)
				return nil
			}
		}
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received settlement event",
		"reference", event.Reference,
		"status", event.Status)

	if err := h.processor.Process(ctx, &event); err != nil {
		logger.Error("Failed to process settlement event",
			"reference", event.Reference,
			"error", err)
		return fmt.Errorf("processing settlement %s failed: %w", event.Reference, err)
	}

	logger.Info("Successfully processed settlement event", "reference", event.Reference)
	return nil
}
