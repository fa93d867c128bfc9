// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qg-chatting-service/internal/domain/subscription"
	xerrors "qg-chatting-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, tenant_id, plan_id, status, current_period_start, current_period_end, price_locked_usd, created_at`

// CreateTx inserts a subscription within a transaction. The partial unique
// index on (tenant_id) WHERE status = 'active' enforces at most one active
// subscription per tenant.
func (r *SubscriptionRepository) CreateTx(ctx context.Context, tx pgx.Tx, s *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, tenant_id, plan_id, status, current_period_start, current_period_end, price_locked_usd)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := tx.QueryRow(ctx, query,
		s.ID, s.TenantID, s.PlanID, s.Status,
		s.CurrentPeriodStart, s.CurrentPeriodEnd, s.PriceLockedUSD,
	).Scan(&s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tenant %s already has an active subscription: %w", s.TenantID, xerrors.ErrConflict)
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// SupersedeActiveTx marks the current active subscription expired so a renewal
// can insert a fresh row while keeping the old one as history.
func (r *SubscriptionRepository) SupersedeActiveTx(ctx context.Context, tx pgx.Tx, tenantID string) error {
	query := `UPDATE subscriptions SET status = 'expired' WHERE tenant_id = $1 AND status = 'active'`
	if _, err := tx.Exec(ctx, query, tenantID); err != nil {
		return fmt.Errorf("failed to supersede active subscription: %w", err)
	}
	return nil
}

// FindActiveByTenant returns the tenant's single active subscription.
func (r *SubscriptionRepository) FindActiveByTenant(ctx context.Context, tenantID string) (*subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE tenant_id = $1 AND status = 'active'
	`
	var s subscription.Subscription
	err := r.db.QueryRow(ctx, query, tenantID).Scan(
		&s.ID, &s.TenantID, &s.PlanID, &s.Status,
		&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.PriceLockedUSD, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}
	return &s, nil
}

// ListExpiringWithin returns active subscriptions whose period ends inside the
// window, for the expiry notification sweep.
func (r *SubscriptionRepository) ListExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = 'active'
		  AND current_period_end > $1
		  AND current_period_end <= $2
	`
	rows, err := r.db.Query(ctx, query, now, now.Add(window))
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring subscriptions: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// MarkExpiredBefore transitions every active subscription past its period end
// to expired and returns how many rows changed. Safe to re-run.
func (r *SubscriptionRepository) MarkExpiredBefore(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE subscriptions SET status = 'expired' WHERE status = 'active' AND current_period_end < $1`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SubscriptionRepository) collect(rows pgx.Rows) ([]subscription.Subscription, error) {
	var out []subscription.Subscription
	for rows.Next() {
		var s subscription.Subscription
		err := rows.Scan(
			&s.ID, &s.TenantID, &s.PlanID, &s.Status,
			&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.PriceLockedUSD, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
