// internal/repository/postgres/invitation_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qg-chatting-service/internal/domain/invitation"
	xerrors "qg-chatting-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InvitationRepository struct {
	db *pgxpool.Pool
}

func NewInvitationRepository(db *pgxpool.Pool) *InvitationRepository {
	return &InvitationRepository{db: db}
}

const invitationColumns = `id, tenant_id, email, role_key, token_lookup, token_hash, status, expires_at, accepted_at, created_by, created_at`

func (r *InvitationRepository) Create(ctx context.Context, inv *invitation.Invitation) error {
	query := `
		INSERT INTO invitations (id, tenant_id, email, role_key, token_lookup, token_hash, status, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		inv.ID, inv.TenantID, inv.Email, inv.RoleKey,
		inv.TokenLookup, inv.TokenHash, inv.Status, inv.ExpiresAt, inv.CreatedBy,
	).Scan(&inv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invitation token collision: %w", xerrors.ErrConflict)
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

func (r *InvitationRepository) FindByID(ctx context.Context, id string) (*invitation.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`
	return r.scan(r.db.QueryRow(ctx, query, id))
}

// FindByTokenLookup retrieves an invitation by the public half of its token.
// The caller compares the secret half against TokenHash.
func (r *InvitationRepository) FindByTokenLookup(ctx context.Context, lookup string) (*invitation.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE token_lookup = $1`
	return r.scan(r.db.QueryRow(ctx, query, lookup))
}

// MarkAcceptedTx transitions pending -> accepted inside a transaction. The
// WHERE clause makes the transition one-way: a second acceptance matches zero
// rows and reports ErrAlreadyAccepted.
func (r *InvitationRepository) MarkAcceptedTx(ctx context.Context, tx pgx.Tx, id string, at time.Time) error {
	query := `
		UPDATE invitations
		SET status = 'accepted', accepted_at = $2
		WHERE id = $1 AND accepted_at IS NULL AND status = 'pending'
	`
	tag, err := tx.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark invitation accepted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrAlreadyAccepted
	}
	return nil
}

// Revoke marks a pending invitation revoked.
func (r *InvitationRepository) Revoke(ctx context.Context, id string) error {
	query := `UPDATE invitations SET status = 'revoked' WHERE id = $1 AND status = 'pending'`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// Replace supersedes a prior invitation with a fresh token and expiry: the old
// row is revoked and the new one inserted in one transaction.
func (r *InvitationRepository) Replace(ctx context.Context, oldID string, fresh *invitation.Invitation) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE invitations SET status = 'revoked' WHERE id = $1 AND status = 'pending'`, oldID)
	if err != nil {
		return fmt.Errorf("failed to supersede invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO invitations (id, tenant_id, email, role_key, token_lookup, token_hash, status, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`,
		fresh.ID, fresh.TenantID, fresh.Email, fresh.RoleKey,
		fresh.TokenLookup, fresh.TokenHash, fresh.Status, fresh.ExpiresAt, fresh.CreatedBy,
	).Scan(&fresh.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert replacement invitation: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *InvitationRepository) scan(row pgx.Row) (*invitation.Invitation, error) {
	var inv invitation.Invitation
	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.Email, &inv.RoleKey,
		&inv.TokenLookup, &inv.TokenHash, &inv.Status,
		&inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedBy, &inv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan invitation: %w", err)
	}
	return &inv, nil
}
