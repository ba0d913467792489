package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/shopspring/decimal"

	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
)

// Status is the gateway's view of a transfer
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// TransferRequest describes an outbound disbursement over an external rail
type TransferRequest struct {
	// Reference is our ledger entry ID, echoed back in settlement callbacks
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Channel     shared.Channel
	Destination map[string]string
	Narration   string
}

// TransferResult is the gateway's acknowledgement of a transfer
type TransferResult struct {
	ExternalRef string
	Status      Status
	// FailureReason is set when Status is StatusFailed
	FailureReason string
}

// GatewayError is a definite rejection from the payment gateway. Transport
// failures with unknown outcomes are returned as plain errors instead.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e GatewayError) Error() string {
	return fmt.Sprintf("gateway rejected request with status %d: %s", e.StatusCode, e.Message)
}

// PaymentGateway moves funds over external rails and reports transfer status
type PaymentGateway interface {
	// Transfer initiates a disbursement. A nil error with StatusPending
	// means the outcome arrives later via settlement callback.
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	// Verify fetches the current status of a previously initiated transfer
	Verify(ctx context.Context, reference string) (*TransferResult, error)
}

// IsOutcomeUnknown reports whether an error leaves the transfer outcome
// undecided. Such entries must stay pending for reconciliation rather
// than being refunded.
func IsOutcomeUnknown(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var gwErr GatewayError
	return !errors.As(err, &gwErr)
}
