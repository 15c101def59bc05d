package billing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

const defaultTossBaseURL = "https://api.tosspayments.com"

// TossClient is a thin REST client for the Toss Payments API. Toss publishes
// no Go SDK; the API is Basic-auth JSON over HTTPS.
type TossClient struct {
	httpClient *http.Client
	baseURL    string
	authHeader string
}

type TossConfig struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

func NewTossClient(cfg TossConfig) *TossClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultTossBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	// Toss basic auth is "secretKey:" base64 encoded, password left empty.
	auth := base64.StdEncoding.EncodeToString([]byte(cfg.SecretKey + ":"))
	return &TossClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		authHeader: "Basic " + auth,
	}
}

type tossError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type tossPayment struct {
	PaymentKey  string `json:"paymentKey"`
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"totalAmount"`
	ApprovedAt  string `json:"approvedAt"`
}

func (c *TossClient) ConfirmPayment(ctx context.Context, paymentKey, orderID string, amountKRW int64) (*ports.PaymentConfirmation, error) {
	body := map[string]any{
		"paymentKey": paymentKey,
		"orderId":    orderID,
		"amount":     amountKRW,
	}
	raw, err := c.post(ctx, "/v1/payments/confirm", body)
	if err != nil {
		return nil, err
	}

	var payment tossPayment
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil, fmt.Errorf("toss: decode confirm response: %w", err)
	}
	if payment.Status != "DONE" {
		return nil, fmt.Errorf("toss: payment status %q", payment.Status)
	}

	approvedAt := time.Now()
	if payment.ApprovedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, payment.ApprovedAt); err == nil {
			approvedAt = parsed
		}
	}
	return &ports.PaymentConfirmation{
		PaymentKey: payment.PaymentKey,
		OrderID:    payment.OrderID,
		AmountKRW:  payment.TotalAmount,
		ApprovedAt: approvedAt,
		Raw:        raw,
	}, nil
}

func (c *TossClient) CancelPayment(ctx context.Context, paymentKey, reason string) error {
	path := "/v1/payments/" + paymentKey + "/cancel"
	_, err := c.post(ctx, path, map[string]any{"cancelReason": reason})
	return err
}

func (c *TossClient) post(ctx context.Context, path string, body map[string]any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("toss: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("toss: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr tossError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Code != "" {
			return nil, fmt.Errorf("toss: %s (%s)", apiErr.Message, apiErr.Code)
		}
		return nil, fmt.Errorf("toss: unexpected status %d", resp.StatusCode)
	}
	return raw, nil
}

var _ ports.PaymentGateway = (*TossClient)(nil)
