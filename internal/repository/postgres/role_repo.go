// internal/repository/postgres/role_repo.go
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

type RoleRepository struct {
	db *pgxpool.Pool
}

func NewRoleRepository(db *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{db: db}
}

// FindByKey resolves a role by its key (owner, admin, ...). Roles are seed
// data; a missing key is a deployment problem, not user error.
func (r *RoleRepository) FindByKey(ctx context.Context, key string) (*tenant.Role, error) {
	var role tenant.Role
	err := r.db.QueryRow(ctx, `SELECT id, key FROM roles WHERE key = $1`, key).
		Scan(&role.ID, &role.Key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find role %s: %w", key, err)
	}
	return &role, nil
}

// UpsertAssignment grants a role to a user within a tenant, idempotently.
func (r *RoleRepository) UpsertAssignment(ctx context.Context, a *tenant.RoleAssignment) error {
	query := `
		INSERT INTO role_assignments (user_id, tenant_id, role_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, tenant_id, role_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, a.UserID, a.TenantID, a.RoleID); err != nil {
		return fmt.Errorf("failed to upsert role assignment: %w", err)
	}
	return nil
}

// UpsertAssignmentTx is UpsertAssignment inside a caller-owned transaction.
func (r *RoleRepository) UpsertAssignmentTx(ctx context.Context, tx pgx.Tx, a *tenant.RoleAssignment) error {
	query := `
		INSERT INTO role_assignments (user_id, tenant_id, role_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, tenant_id, role_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, query, a.UserID, a.TenantID, a.RoleID); err != nil {
		return fmt.Errorf("failed to upsert role assignment: %w", err)
	}
	return nil
}

// ListUserRoles returns the role keys a user holds within a tenant.
func (r *RoleRepository) ListUserRoles(ctx context.Context, userID, tenantID string) ([]string, error) {
	query := `
		SELECT r.key
		FROM role_assignments ra
		JOIN roles r ON r.id = ra.role_id
		WHERE ra.user_id = $1 AND ra.tenant_id = $2
	`
	rows, err := r.db.Query(ctx, query, userID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan role key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
