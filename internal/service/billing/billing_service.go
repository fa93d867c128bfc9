// internal/service/billing/billing_service.go
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qg-chatting-service/internal/adapter/payment"
	"qg-chatting-service/internal/domain/billing"
	"qg-chatting-service/internal/domain/subscription"
	xerrors "qg-chatting-service/internal/pkg/errors"
	"qg-chatting-service/internal/pkg/id"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SubscriptionPeriod is the billing cycle granted per settled invoice.
const SubscriptionPeriod = 30 * 24 * time.Hour

type TransactionStore interface {
	CreateTransaction(ctx context.Context, t *billing.Transaction) error
	FindTransactionByExternalInvoice(ctx context.Context, externalInvoiceID string) (*billing.Transaction, error)
	MarkTransactionPaidTx(ctx context.Context, tx pgx.Tx, id string, at time.Time) (bool, error)
	CreateInvoiceTx(ctx context.Context, tx pgx.Tx, inv *billing.Invoice) error
	NextInvoiceNumber(ctx context.Context, tx pgx.Tx) (string, error)
}

type SubscriptionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, s *subscription.Subscription) error
	SupersedeActiveTx(ctx context.Context, tx pgx.Tx, tenantID string) error
}

type PlanStore interface {
	FindByID(ctx context.Context, id int64) (*subscription.Plan, error)
	FindByCode(ctx context.Context, code string) (*subscription.Plan, error)
}

type Gateway interface {
	CreateInvoice(ctx context.Context, in payment.CreateInvoiceInput) (*payment.CreatedInvoice, error)
	VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool
}

type TxBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type Service struct {
	transactions  TransactionStore
	subscriptions SubscriptionStore
	plans         PlanStore
	gateway       Gateway
	db            TxBeginner
	logger        *zap.Logger

	now func() time.Time
}

func NewService(
	transactions TransactionStore,
	subscriptions SubscriptionStore,
	plans PlanStore,
	gateway Gateway,
	db TxBeginner,
	logger *zap.Logger,
) *Service {
	return &Service{
		transactions:  transactions,
		subscriptions: subscriptions,
		plans:         plans,
		gateway:       gateway,
		db:            db,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// StartCheckout opens a gateway invoice for the plan and records the pending
// transaction. The plan price is captured on the transaction so a later price
// change cannot alter what this checkout settles for.
func (s *Service) StartCheckout(ctx context.Context, tenantID, planCode string) (*billing.CheckoutResponse, error) {
	plan, err := s.plans.FindByCode(ctx, planCode)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown plan %q", xerrors.ErrInvalidInput, planCode)
		}
		return nil, err
	}
	if !plan.IsPublic {
		return nil, fmt.Errorf("%w: plan %q is not purchasable", xerrors.ErrInvalidInput, planCode)
	}

	txID := id.New()
	inv, err := s.gateway.CreateInvoice(ctx, payment.CreateInvoiceInput{
		AmountUSD: plan.PriceUSD,
		Metadata: map[string]string{
			"tenant_id":      tenantID,
			"transaction_id": txID,
			"plan_code":      plan.Code,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway invoice: %w", err)
	}

	txn := &billing.Transaction{
		ID:                txID,
		TenantID:          tenantID,
		PlanID:            plan.ID,
		Status:            billing.TransactionPending,
		ExternalInvoiceID: inv.InvoiceID,
		CheckoutURL:       inv.CheckoutURL,
		AmountUSD:         plan.PriceUSD,
	}
	if err := s.transactions.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}

	s.logger.Info("checkout started",
		zap.String("transaction_id", txn.ID),
		zap.String("tenant_id", tenantID),
		zap.String("plan", plan.Code),
		zap.Float64("amount_usd", plan.PriceUSD),
	)
	return &billing.CheckoutResponse{
		TransactionID: txn.ID,
		CheckoutURL:   txn.CheckoutURL,
		AmountUSD:     txn.AmountUSD,
	}, nil
}

// HandleWebhook processes a raw gateway callback. Settlement is applied at
// most once per transaction: the paid flip is a guarded update, so a replayed
// event finds zero rows and returns without touching subscriptions.
func (s *Service) HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) error {
	if !s.gateway.VerifyWebhookSignature(rawBody, signatureHeader) {
		return fmt.Errorf("%w: bad webhook signature", xerrors.ErrUnauthorized)
	}

	var event billing.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return fmt.Errorf("%w: malformed webhook payload", xerrors.ErrInvalidInput)
	}
	if event.Type != billing.EventInvoiceSettled {
		s.logger.Debug("ignoring webhook event", zap.String("type", event.Type))
		return nil
	}
	if event.InvoiceID == "" {
		return fmt.Errorf("%w: webhook event missing invoice id", xerrors.ErrInvalidInput)
	}

	txn, err := s.transactions.FindTransactionByExternalInvoice(ctx, event.InvoiceID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			// Unknown invoice: acknowledge so the gateway stops retrying.
			s.logger.Warn("webhook for unknown invoice", zap.String("invoice_id", event.InvoiceID))
			return nil
		}
		return err
	}

	now := s.now()

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	flipped, err := s.transactions.MarkTransactionPaidTx(ctx, tx, txn.ID, now)
	if err != nil {
		return err
	}
	if !flipped {
		s.logger.Info("webhook replay ignored, transaction already settled",
			zap.String("transaction_id", txn.ID),
		)
		return nil
	}

	plan, err := s.plans.FindByID(ctx, txn.PlanID)
	if err != nil {
		return fmt.Errorf("failed to load plan %d: %w", txn.PlanID, err)
	}

	// The prior active subscription is superseded, not deleted; the row
	// stays as history with status expired.
	if err := s.subscriptions.SupersedeActiveTx(ctx, tx, txn.TenantID); err != nil {
		return fmt.Errorf("failed to supersede active subscription: %w", err)
	}

	sub := &subscription.Subscription{
		ID:                 id.New(),
		TenantID:           txn.TenantID,
		PlanID:             plan.ID,
		Status:             subscription.StatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(SubscriptionPeriod),
		PriceLockedUSD:     txn.AmountUSD,
	}
	if err := s.subscriptions.CreateTx(ctx, tx, sub); err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	number, err := s.transactions.NextInvoiceNumber(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	err = s.transactions.CreateInvoiceTx(ctx, tx, &billing.Invoice{
		ID:            id.New(),
		Number:        number,
		TransactionID: txn.ID,
		TenantID:      txn.TenantID,
		AmountUSD:     txn.AmountUSD,
		IssuedAt:      now,
	})
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}

	s.logger.Info("subscription activated",
		zap.String("tenant_id", txn.TenantID),
		zap.String("subscription_id", sub.ID),
		zap.String("invoice_number", number),
		zap.Time("period_end", sub.CurrentPeriodEnd),
	)
	return nil
}
