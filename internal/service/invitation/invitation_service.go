// internal/service/invitation/invitation_service.go
package invitation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	inv "qg-chatting-service/internal/domain/invitation"
	"qg-chatting-service/internal/domain/tenant"
	xerrors "qg-chatting-service/internal/pkg/errors"
	"qg-chatting-service/internal/pkg/id"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTTL is how long an invitation stays acceptable.
const DefaultTTL = 7 * 24 * time.Hour

type InvitationStore interface {
	Create(ctx context.Context, i *inv.Invitation) error
	FindByID(ctx context.Context, id string) (*inv.Invitation, error)
	FindByTokenLookup(ctx context.Context, lookup string) (*inv.Invitation, error)
	MarkAcceptedTx(ctx context.Context, tx pgx.Tx, id string, at time.Time) error
	Revoke(ctx context.Context, id string) error
	Replace(ctx context.Context, oldID string, fresh *inv.Invitation) error
}

type MembershipStore interface {
	UpsertTx(ctx context.Context, tx pgx.Tx, m *tenant.Membership) error
}

type RoleStore interface {
	FindByKey(ctx context.Context, key string) (*tenant.Role, error)
	UpsertAssignment(ctx context.Context, a *tenant.RoleAssignment) error
}

type TenantStore interface {
	FindByID(ctx context.Context, id string) (*tenant.Tenant, error)
}

type TxBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type Service struct {
	invitations InvitationStore
	memberships MembershipStore
	roles       RoleStore
	tenants     TenantStore
	db          TxBeginner
	logger      *zap.Logger

	now func() time.Time
}

func NewService(
	invitations InvitationStore,
	memberships MembershipStore,
	roles RoleStore,
	tenants TenantStore,
	db TxBeginner,
	logger *zap.Logger,
) *Service {
	return &Service{
		invitations: invitations,
		memberships: memberships,
		roles:       roles,
		tenants:     tenants,
		db:          db,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

var validRoles = map[string]bool{
	tenant.RoleAdmin:     true,
	tenant.RoleManager:   true,
	tenant.RoleEmployee:  true,
	tenant.RoleMarketing: true,
}

// Create mints a single-use invitation. The returned token is
// "<lookup>.<secret>"; only a bcrypt hash of the secret half is stored.
func (s *Service) Create(ctx context.Context, tenantID, email, roleKey, createdBy string) (*inv.Invitation, string, error) {
	roleKey = strings.ToLower(roleKey)
	if !validRoles[roleKey] {
		return nil, "", fmt.Errorf("%w: role %q cannot be granted by invitation", xerrors.ErrInvalidInput, roleKey)
	}

	lookup := id.New()
	secret := id.NewToken()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash invitation token: %w", err)
	}

	invitation := &inv.Invitation{
		ID:          id.New(),
		TenantID:    tenantID,
		Email:       strings.ToLower(email),
		RoleKey:     roleKey,
		TokenLookup: lookup,
		TokenHash:   string(hash),
		Status:      inv.StatusPending,
		ExpiresAt:   s.now().Add(DefaultTTL),
		CreatedBy:   createdBy,
	}
	if err := s.invitations.Create(ctx, invitation); err != nil {
		return nil, "", err
	}

	s.logger.Info("invitation created",
		zap.String("invitation_id", invitation.ID),
		zap.String("tenant_id", tenantID),
		zap.String("role", roleKey),
	)
	return invitation, lookup + "." + secret, nil
}

// Accept runs the invitation state machine for a token presented by userID:
// pending and unexpired -> accepted plus membership and role, atomically.
// Expired tokens are rejected regardless of accepted_at; a second acceptance
// reports ErrAlreadyAccepted and creates nothing.
func (s *Service) Accept(ctx context.Context, token, userID string) (*tenant.Tenant, string, error) {
	lookup, secret, ok := strings.Cut(token, ".")
	if !ok {
		return nil, "", fmt.Errorf("%w: malformed invitation token", xerrors.ErrInvalidInput)
	}

	invitation, err := s.invitations.FindByTokenLookup(ctx, lookup)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, "", xerrors.ErrNotFound
		}
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(invitation.TokenHash), []byte(secret)) != nil {
		return nil, "", xerrors.ErrNotFound
	}

	// Expiry wins over every other state.
	if invitation.Expired(s.now()) {
		return nil, "", fmt.Errorf("invitation expired at %s: %w", invitation.ExpiresAt.Format(time.RFC3339), xerrors.ErrExpired)
	}
	if invitation.Status == inv.StatusAccepted {
		return nil, "", xerrors.ErrAlreadyAccepted
	}
	if invitation.Status == inv.StatusRevoked {
		return nil, "", xerrors.ErrNotFound
	}

	t, err := s.tenants.FindByID(ctx, invitation.TenantID)
	if err != nil {
		return nil, "", err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.invitations.MarkAcceptedTx(ctx, tx, invitation.ID, s.now()); err != nil {
		return nil, "", err
	}

	err = s.memberships.UpsertTx(ctx, tx, &tenant.Membership{
		UserID:   userID,
		TenantID: invitation.TenantID,
		IsOwner:  false,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to commit acceptance: %w", err)
	}

	// The membership is the load-bearing fact and is committed by now. The
	// role grant runs outside the transaction: a failed statement inside it
	// would abort the whole transaction and take the membership down with it.
	// A grant failure degrades to accepted-with-default-permissions.
	if role, roleErr := s.roles.FindByKey(ctx, invitation.RoleKey); roleErr == nil {
		if assignErr := s.roles.UpsertAssignment(ctx, &tenant.RoleAssignment{
			UserID:   userID,
			TenantID: invitation.TenantID,
			RoleID:   role.ID,
		}); assignErr != nil {
			s.logger.Warn("invitation accepted without role grant",
				zap.String("invitation_id", invitation.ID),
				zap.String("role", invitation.RoleKey),
				zap.Error(assignErr),
			)
		}
	} else {
		s.logger.Warn("invitation role not found, accepted with default permissions",
			zap.String("invitation_id", invitation.ID),
			zap.String("role", invitation.RoleKey),
			zap.Error(roleErr),
		)
	}

	s.logger.Info("invitation accepted",
		zap.String("invitation_id", invitation.ID),
		zap.String("tenant_id", invitation.TenantID),
	)
	return t, invitation.RoleKey, nil
}

// findScoped loads an invitation and verifies it belongs to tenantID. A
// mismatch reads as not-found so callers cannot confirm that another tenant's
// invitation id exists.
func (s *Service) findScoped(ctx context.Context, tenantID, invitationID string) (*inv.Invitation, error) {
	invitation, err := s.invitations.FindByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if invitation.TenantID != tenantID {
		return nil, xerrors.ErrNotFound
	}
	return invitation, nil
}

// Revoke withdraws a pending invitation belonging to tenantID.
func (s *Service) Revoke(ctx context.Context, tenantID, invitationID string) error {
	if _, err := s.findScoped(ctx, tenantID, invitationID); err != nil {
		return err
	}
	return s.invitations.Revoke(ctx, invitationID)
}

// Resend replaces a pending invitation belonging to tenantID with a fresh
// token and expiry window.
func (s *Service) Resend(ctx context.Context, tenantID, invitationID string) (*inv.Invitation, string, error) {
	prior, err := s.findScoped(ctx, tenantID, invitationID)
	if err != nil {
		return nil, "", err
	}
	if prior.Status != inv.StatusPending {
		return nil, "", fmt.Errorf("%w: only pending invitations can be resent", xerrors.ErrInvalidInput)
	}

	lookup := id.New()
	secret := id.NewToken()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash invitation token: %w", err)
	}

	fresh := &inv.Invitation{
		ID:          id.New(),
		TenantID:    prior.TenantID,
		Email:       prior.Email,
		RoleKey:     prior.RoleKey,
		TokenLookup: lookup,
		TokenHash:   string(hash),
		Status:      inv.StatusPending,
		ExpiresAt:   s.now().Add(DefaultTTL),
		CreatedBy:   prior.CreatedBy,
	}
	if err := s.invitations.Replace(ctx, prior.ID, fresh); err != nil {
		return nil, "", err
	}

	s.logger.Info("invitation resent",
		zap.String("old_invitation_id", prior.ID),
		zap.String("invitation_id", fresh.ID),
	)
	return fresh, lookup + "." + secret, nil
}
