// internal/repository/postgres/tenant_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qg-chatting-service/internal/domain/tenant"
	xerrors "qg-chatting-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TenantRepository struct {
	db *pgxpool.Pool
}

func NewTenantRepository(db *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = `id, name, subdomain, locale, theme, domain_confirmed, domain_target, created_at, updated_at`

// Create inserts a new tenant row. A subdomain uniqueness violation surfaces
// as xerrors.ErrConflict so the orchestrator can re-load and decide lineage.
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, subdomain, locale, theme)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	var themeJSON []byte
	if t.Theme != nil {
		var err error
		themeJSON, err = json.Marshal(t.Theme)
		if err != nil {
			return fmt.Errorf("failed to marshal theme: %w", err)
		}
	}

	err := r.db.QueryRow(ctx, query, t.ID, t.Name, t.Subdomain, t.Locale, themeJSON).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("subdomain %s: %w", t.Subdomain, xerrors.ErrConflict)
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// FindBySubdomain retrieves a tenant by its unique subdomain.
func (r *TenantRepository) FindBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE subdomain = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, subdomain))
}

// FindByID retrieves a tenant by id.
func (r *TenantRepository) FindByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// MarkDomainConfirmed records that the CNAME exists and pins the target. The
// subdomain is immutable from this point; there is deliberately no update path
// for it.
func (r *TenantRepository) MarkDomainConfirmed(ctx context.Context, id, target string) error {
	query := `
		UPDATE tenants
		SET domain_confirmed = TRUE, domain_target = $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, target)
	if err != nil {
		return fmt.Errorf("failed to mark domain confirmed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// ListUnpaidOlderThan returns tenants created before the cutoff that have
// never had a paid subscription. Used by the cleanup sweep.
func (r *TenantRepository) ListUnpaidOlderThan(ctx context.Context, cutoff time.Time) ([]tenant.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants t
		WHERE t.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM subscriptions s WHERE s.tenant_id = t.id)
	`
	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpaid tenants: %w", err)
	}
	defer rows.Close()

	var out []tenant.Tenant
	for rows.Next() {
		t, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Delete removes a tenant; memberships, role assignments and invitations go
// with it via ON DELETE CASCADE. Only the unpaid-cleanup job calls this.
func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *TenantRepository) scanOne(row pgx.Row) (*tenant.Tenant, error) {
	t, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *TenantRepository) scanRow(row pgx.Row) (*tenant.Tenant, error) {
	var t tenant.Tenant
	var themeJSON []byte

	err := row.Scan(
		&t.ID, &t.Name, &t.Subdomain, &t.Locale, &themeJSON,
		&t.DomainConfirmed, &t.DomainTarget, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}

	if len(themeJSON) > 0 {
		json.Unmarshal(themeJSON, &t.Theme)
	}
	return &t, nil
}
