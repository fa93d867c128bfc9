// internal/repository/postgres/membership_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"qg-chatting-service/internal/domain/tenant"
	xerrors "qg-chatting-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MembershipRepository struct {
	db *pgxpool.Pool
}

func NewMembershipRepository(db *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Upsert inserts a membership row, treating an existing (user, tenant) pair as
// success. Two concurrent provisioning attempts converge on one row through
// the uniqueness constraint, not application locking.
func (r *MembershipRepository) Upsert(ctx context.Context, m *tenant.Membership) error {
	query := `
		INSERT INTO user_tenant_memberships (user_id, tenant_id, is_owner)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, tenant_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, m.UserID, m.TenantID, m.IsOwner); err != nil {
		return fmt.Errorf("failed to upsert membership: %w", err)
	}
	return nil
}

// UpsertTx is Upsert inside a caller-owned transaction.
func (r *MembershipRepository) UpsertTx(ctx context.Context, tx pgx.Tx, m *tenant.Membership) error {
	query := `
		INSERT INTO user_tenant_memberships (user_id, tenant_id, is_owner)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, tenant_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, query, m.UserID, m.TenantID, m.IsOwner); err != nil {
		return fmt.Errorf("failed to upsert membership: %w", err)
	}
	return nil
}

// Find retrieves the membership for a (user, tenant) pair.
func (r *MembershipRepository) Find(ctx context.Context, userID, tenantID string) (*tenant.Membership, error) {
	query := `
		SELECT user_id, tenant_id, is_owner, created_at
		FROM user_tenant_memberships
		WHERE user_id = $1 AND tenant_id = $2
	`
	var m tenant.Membership
	err := r.db.QueryRow(ctx, query, userID, tenantID).
		Scan(&m.UserID, &m.TenantID, &m.IsOwner, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}
	return &m, nil
}

// ListOwners returns the user ids of a tenant's owner memberships.
func (r *MembershipRepository) ListOwners(ctx context.Context, tenantID string) ([]string, error) {
	query := `
		SELECT user_id FROM user_tenant_memberships
		WHERE tenant_id = $1 AND is_owner = TRUE
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}
