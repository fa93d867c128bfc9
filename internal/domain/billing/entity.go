// internal/domain/billing/entity.go
package billing

import (
	"database/sql"
	"time"
)

type TransactionStatus string

// Transitions are monotonic: pending -> paid | expired | cancelled. A paid
// transaction is immutable.
const (
	TransactionPending   TransactionStatus = "pending"
	TransactionPaid      TransactionStatus = "paid"
	TransactionExpired   TransactionStatus = "expired"
	TransactionCancelled TransactionStatus = "cancelled"
)

type Transaction struct {
	ID                string            `json:"id" db:"id"`
	TenantID          string            `json:"tenant_id" db:"tenant_id"`
	PlanID            int64             `json:"plan_id" db:"plan_id"`
	Status            TransactionStatus `json:"status" db:"status"`
	ExternalInvoiceID string            `json:"external_invoice_id" db:"external_invoice_id"`
	CheckoutURL       string            `json:"checkout_url" db:"checkout_url"`
	AmountUSD         float64           `json:"amount_usd" db:"amount_usd"`
	PaidAt            sql.NullTime      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
}

// Invoice is the accounting record minted when a transaction reaches paid.
type Invoice struct {
	ID            string    `json:"id" db:"id"`
	Number        string    `json:"number" db:"number"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	TenantID      string    `json:"tenant_id" db:"tenant_id"`
	AmountUSD     float64   `json:"amount_usd" db:"amount_usd"`
	IssuedAt      time.Time `json:"issued_at" db:"issued_at"`
}
