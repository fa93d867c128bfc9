// internal/adapter/payment/client.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	xerrors "qg-chatting-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type Config struct {
	BaseURL       string
	StoreID       string
	APIKey        string
	WebhookSecret string
	Timeout       time.Duration
}

// Client creates and queries crypto invoices with the payment gateway.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type CreateInvoiceInput struct {
	AmountUSD float64
	Metadata  map[string]string
}

type CreatedInvoice struct {
	InvoiceID   string `json:"id"`
	CheckoutURL string `json:"checkoutLink"`
}

type InvoiceStatus struct {
	Status string `json:"status"` // New, Processing, Settled, Expired, Invalid
}

// CreateInvoice opens a checkout invoice on the gateway.
func (c *Client) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*CreatedInvoice, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"amount":   fmt.Sprintf("%.2f", in.AmountUSD),
		"currency": "USD",
		"metadata": in.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode invoice request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/stores/%s/invoices", c.cfg.StoreID), payload)
	if err != nil {
		return nil, err
	}

	var inv CreatedInvoice
	if err := json.Unmarshal(body, &inv); err != nil {
		return nil, fmt.Errorf("failed to decode invoice response: %w", err)
	}
	return &inv, nil
}

// GetInvoice returns the current gateway status of an invoice.
func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (*InvoiceStatus, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/stores/%s/invoices/%s", c.cfg.StoreID, invoiceID), nil)
	if err != nil {
		return nil, err
	}

	var st InvoiceStatus
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("failed to decode invoice status: %w", err)
	}
	return &st, nil
}

// VerifyWebhookSignature checks the gateway's HMAC-SHA256 signature over the
// raw body. The header carries "sha256=<hex>".
func VerifyWebhookSignature(rawBody []byte, signatureHeader, secret string) bool {
	sig := strings.TrimPrefix(signatureHeader, "sha256=")
	if sig == "" || secret == "" {
		return false
	}

	expected, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hmac.Equal(mac.Sum(nil), expected)
}

// VerifyWebhookSignature uses the client's configured secret.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool {
	return VerifyWebhookSignature(rawBody, signatureHeader, c.cfg.WebhookSecret)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("payment %s %s: %w", method, path, xerrors.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("payment %s %s: %w: %v", method, path, xerrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, xerrors.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("payment %s %s returned %d: %w", method, path, resp.StatusCode, xerrors.ErrUpstream)
	}
	return body, nil
}
