package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"type":"InvoiceSettled","invoiceId":"inv-1"}`)

	assert.True(t, VerifyWebhookSignature(body, sign("hook-secret", body), "hook-secret"))
	assert.False(t, VerifyWebhookSignature(body, sign("wrong-secret", body), "hook-secret"))
	assert.False(t, VerifyWebhookSignature([]byte(`tampered`), sign("hook-secret", body), "hook-secret"))
	assert.False(t, VerifyWebhookSignature(body, "sha256=zz-not-hex", "hook-secret"))
	assert.False(t, VerifyWebhookSignature(body, "", "hook-secret"))
	assert.False(t, VerifyWebhookSignature(body, sign("hook-secret", body), ""), "unconfigured secret never verifies")

	c := NewClient(Config{WebhookSecret: "hook-secret"}, zap.NewNop())
	assert.True(t, c.VerifyWebhookSignature(body, sign("hook-secret", body)))
}

func TestCreateInvoice(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/stores/store-1/invoices", r.URL.Path)
		assert.Equal(t, "token api-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`{"id":"inv-42","checkoutLink":"https://pay.example/i/inv-42"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, StoreID: "store-1", APIKey: "api-key"}, zap.NewNop())
	inv, err := c.CreateInvoice(context.Background(), CreateInvoiceInput{
		AmountUSD: 149,
		Metadata:  map[string]string{"tenant_id": "t-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "inv-42", inv.InvoiceID)
	assert.Equal(t, "https://pay.example/i/inv-42", inv.CheckoutURL)
	assert.Equal(t, "149.00", got["amount"], "amount is sent as a fixed-point string")
	assert.Equal(t, "USD", got["currency"])
}
