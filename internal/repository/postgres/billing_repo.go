// internal/repository/postgres/billing_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qg-chatting-service/internal/domain/billing"
	xerrors "qg-chatting-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BillingRepository struct {
	db *pgxpool.Pool
}

func NewBillingRepository(db *pgxpool.Pool) *BillingRepository {
	return &BillingRepository{db: db}
}

const transactionColumns = `id, tenant_id, plan_id, status, external_invoice_id, checkout_url, amount_usd, paid_at, created_at`

func (r *BillingRepository) CreateTransaction(ctx context.Context, t *billing.Transaction) error {
	query := `
		INSERT INTO transactions (id, tenant_id, plan_id, status, external_invoice_id, checkout_url, amount_usd)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		t.ID, t.TenantID, t.PlanID, t.Status, t.ExternalInvoiceID, t.CheckoutURL, t.AmountUSD,
	).Scan(&t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transaction for invoice %s exists: %w", t.ExternalInvoiceID, xerrors.ErrConflict)
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *BillingRepository) FindTransactionByExternalInvoice(ctx context.Context, externalInvoiceID string) (*billing.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_invoice_id = $1`
	var t billing.Transaction
	err := r.db.QueryRow(ctx, query, externalInvoiceID).Scan(
		&t.ID, &t.TenantID, &t.PlanID, &t.Status,
		&t.ExternalInvoiceID, &t.CheckoutURL, &t.AmountUSD, &t.PaidAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &t, nil
}

// MarkTransactionPaidTx performs the monotonic pending -> paid transition.
// Zero rows affected means the transaction was already settled (or cancelled);
// the webhook handler treats that as a duplicate delivery and no-ops.
func (r *BillingRepository) MarkTransactionPaidTx(ctx context.Context, tx pgx.Tx, id string, at time.Time) (bool, error) {
	query := `UPDATE transactions SET status = 'paid', paid_at = $2 WHERE id = $1 AND status = 'pending'`
	tag, err := tx.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction paid: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreateInvoiceTx mints the accounting record at paid-transition time. The
// invoice number carries a uniqueness constraint.
func (r *BillingRepository) CreateInvoiceTx(ctx context.Context, tx pgx.Tx, inv *billing.Invoice) error {
	query := `
		INSERT INTO invoices (id, number, transaction_id, tenant_id, amount_usd, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Exec(ctx, query, inv.ID, inv.Number, inv.TransactionID, inv.TenantID, inv.AmountUSD, inv.IssuedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice for transaction %s exists: %w", inv.TransactionID, xerrors.ErrConflict)
		}
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (r *BillingRepository) FindInvoiceByTransaction(ctx context.Context, transactionID string) (*billing.Invoice, error) {
	query := `SELECT id, number, transaction_id, tenant_id, amount_usd, issued_at FROM invoices WHERE transaction_id = $1`
	var inv billing.Invoice
	err := r.db.QueryRow(ctx, query, transactionID).Scan(
		&inv.ID, &inv.Number, &inv.TransactionID, &inv.TenantID, &inv.AmountUSD, &inv.IssuedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	return &inv, nil
}

// NextInvoiceNumber draws from a dedicated sequence so numbers stay unique
// across concurrent settlements.
func (r *BillingRepository) NextInvoiceNumber(ctx context.Context, tx pgx.Tx) (string, error) {
	var n int64
	if err := tx.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("failed to draw invoice number: %w", err)
	}
	return fmt.Sprintf("QG-%06d", n), nil
}
