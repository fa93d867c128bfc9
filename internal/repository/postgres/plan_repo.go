// internal/repository/postgres/plan_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"qg-chatting-service/internal/domain/subscription"
	xerrors "qg-chatting-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// PlanRepository reads the immutable plan catalog.
type PlanRepository struct {
	db *pgxpool.Pool
}

func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, code, name, price_usd, features, max_employees, is_public, created_at`

func (r *PlanRepository) FindByID(ctx context.Context, id int64) (*subscription.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`
	return r.scan(r.db.QueryRow(ctx, query, id))
}

func (r *PlanRepository) FindByCode(ctx context.Context, code string) (*subscription.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE code = $1`
	return r.scan(r.db.QueryRow(ctx, query, code))
}

func (r *PlanRepository) ListPublic(ctx context.Context) ([]subscription.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE is_public = TRUE ORDER BY price_usd`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var out []subscription.Plan
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PlanRepository) scan(row pgx.Row) (*subscription.Plan, error) {
	var p subscription.Plan
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.PriceUSD,
		pq.Array(&p.Features), &p.MaxEmployees, &p.IsPublic, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan plan: %w", err)
	}
	return &p, nil
}
