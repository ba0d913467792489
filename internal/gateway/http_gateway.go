package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/aqqutelabs/gotoken-ledger/internal/config"
)

// HTTPGateway is a payment gateway client speaking the provider's REST API
type HTTPGateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
	logger    *slog.Logger
}

// NewHTTPGateway creates a payment gateway client from configuration
func NewHTTPGateway(logger *slog.Logger, cfg *config.GatewayConfig) *HTTPGateway {
	return &HTTPGateway{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}
}

type transferPayload struct {
	Reference   string            `json:"reference"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Channel     string            `json:"channel"`
	Destination map[string]string `json:"destination"`
	Narration   string            `json:"narration,omitempty"`
}

type transferEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference     string `json:"reference"`
		Status        string `json:"status"`
		FailureReason string `json:"failure_reason"`
	} `json:"data"`
}

// Transfer initiates a disbursement over the configured provider
func (g *HTTPGateway) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	payload := transferPayload{
		Reference:   req.Reference,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Channel:     string(req.Channel),
		Destination: req.Destination,
		Narration:   req.Narration,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transfer payload: %w", err)
	}

	return g.call(ctx, http.MethodPost, g.baseURL+"/transfers", bytes.NewReader(body))
}

// Verify fetches the current status of a transfer by its reference
func (g *HTTPGateway) Verify(ctx context.Context, reference string) (*TransferResult, error) {
	return g.call(ctx, http.MethodGet, g.baseURL+"/transfers/"+reference, nil)
}

func (g *HTTPGateway) call(ctx context.Context, method, endpoint string, body io.Reader) (*TransferResult, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope transferEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		g.logger.Warn("Gateway rejected request",
			"status_code", resp.StatusCode,
			"message", envelope.Message)
		return nil, GatewayError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	result := &TransferResult{
		ExternalRef:   envelope.Data.Reference,
		Status:        Status(envelope.Data.Status),
		FailureReason: envelope.Data.FailureReason,
	}
	if result.Status == "" {
		result.Status = StatusPending
	}

	return result, nil
}
