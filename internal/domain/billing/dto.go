// internal/domain/billing/dto.go
package billing

type CheckoutRequest struct {
	PlanCode string `json:"plan_code" binding:"required"`
}

type CheckoutResponse struct {
	TransactionID string  `json:"transaction_id"`
	CheckoutURL   string  `json:"checkout_url"`
	AmountUSD     float64 `json:"amount_usd"`
}

// WebhookEvent is the gateway's inbound event shape, validated at the boundary
// before any orchestration logic runs.
type WebhookEvent struct {
	Type      string `json:"type" binding:"required"`
	InvoiceID string `json:"invoiceId" binding:"required"`
	StoreID   string `json:"storeId"`
	Timestamp int64  `json:"timestamp"`
}

const EventInvoiceSettled = "InvoiceSettled"
