// internal/service/provisioning/provisioning_service.go
package provisioning

import (
	"context"
	"errors"
	"fmt"

	"qg-chatting-service/internal/adapter/identity"
	"qg-chatting-service/internal/domain/notification"
	"qg-chatting-service/internal/domain/tenant"
	xerrors "qg-chatting-service/internal/pkg/errors"
	"qg-chatting-service/internal/pkg/id"
	"qg-chatting-service/internal/pkg/subdomain"

	"go.uber.org/zap"
)

// TenantStore is the slice of the tenant directory the orchestrator writes.
type TenantStore interface {
	Create(ctx context.Context, t *tenant.Tenant) error
	FindBySubdomain(ctx context.Context, sub string) (*tenant.Tenant, error)
	MarkDomainConfirmed(ctx context.Context, id, target string) error
}

type MembershipStore interface {
	Upsert(ctx context.Context, m *tenant.Membership) error
	Find(ctx context.Context, userID, tenantID string) (*tenant.Membership, error)
}

type RoleStore interface {
	FindByKey(ctx context.Context, key string) (*tenant.Role, error)
	UpsertAssignment(ctx context.Context, a *tenant.RoleAssignment) error
}

type EdgeHost interface {
	EnsureDomain(ctx context.Context, fqdn string) (string, error)
}

type Registrar interface {
	EnsureCNAME(ctx context.Context, zone, label, target string) error
	RefreshZone(ctx context.Context, zone string) error
}

type IdentityProvider interface {
	InviteUserByEmail(ctx context.Context, email string, metadata map[string]interface{}) (string, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *notification.Notification) error
}

// Broadcaster pushes a notification to any live connections for the user.
type Broadcaster interface {
	Push(userID string, n *notification.Notification)
}

type Input struct {
	OwnerUserID string
	OwnerEmail  string
	AgencyName  string
	Subdomain   string
	Locale      string
}

type Result struct {
	TenantID    string
	FQDN        string
	RedirectURL string
}

type Service struct {
	tenants     TenantStore
	memberships MembershipStore
	roles       RoleStore
	edgeHost    EdgeHost
	registrar   Registrar
	idp         IdentityProvider
	rootDomain  string
	zone        string
	baseURL     string
	logger      *zap.Logger

	// Optional collaborators; nil disables the feature, never the pipeline.
	tracker       StatusTracker
	notifications NotificationStore
	broadcaster   Broadcaster
}

func NewService(
	tenants TenantStore,
	memberships MembershipStore,
	roles RoleStore,
	edgeHost EdgeHost,
	registrar Registrar,
	idp IdentityProvider,
	rootDomain, zone, baseURL string,
	logger *zap.Logger,
) *Service {
	return &Service{
		tenants:     tenants,
		memberships: memberships,
		roles:       roles,
		edgeHost:    edgeHost,
		registrar:   registrar,
		idp:         idp,
		rootDomain:  rootDomain,
		zone:        zone,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// WithStatusTracker enables redis-backed progress snapshots for the
// onboarding UI poll.
func (s *Service) WithStatusTracker(t StatusTracker) *Service {
	s.tracker = t
	return s
}

// WithNotifier enables the provisioning-complete owner notification.
func (s *Service) WithNotifier(store NotificationStore, broadcaster Broadcaster) *Service {
	s.notifications = store
	s.broadcaster = broadcaster
	return s
}

// ProvisionTenant drives an onboarding request to a fully operational tenant,
// or fails with a step-tagged error the caller can retry. Steps 1-3 leave
// partial state in place on failure; retrying the same request resumes from
// where it stopped. There is deliberately no rollback: recovery is
// by resubmission, not compensation.
func (s *Service) ProvisionTenant(ctx context.Context, in Input) (*Result, error) {
	label, err := subdomain.Normalize(in.Subdomain)
	if err != nil {
		return nil, err
	}

	res, err := s.provision(ctx, in, label)
	if err != nil {
		s.track(ctx, label, stepOf(err), StateFailed, err.Error())
		return nil, err
	}
	s.track(ctx, label, "done", StateDone, "")
	return res, nil
}

func (s *Service) provision(ctx context.Context, in Input, label string) (*Result, error) {
	s.track(ctx, label, "owner identity", StateRunning, "")
	ownerID, err := s.resolveOwner(ctx, in)
	if err != nil {
		return nil, err
	}

	// Step 1: find-or-create tenant.
	s.track(ctx, label, "tenant", StateRunning, "")
	t, err := s.findOrCreateTenant(ctx, ownerID, in.AgencyName, label, in.Locale)
	if err != nil {
		return nil, err
	}

	// Step 2: owner membership. A pre-existing (user, tenant) row is success.
	s.track(ctx, label, "membership", StateRunning, "")
	err = s.memberships.Upsert(ctx, &tenant.Membership{
		UserID:   ownerID,
		TenantID: t.ID,
		IsOwner:  true,
	})
	if err != nil {
		return nil, xerrors.NewProvisionError(xerrors.CodeMembershipFailed, "owner membership", err)
	}

	// Step 3: owner role assignment, same idempotent-insert pattern.
	s.track(ctx, label, "role", StateRunning, "")
	role, err := s.roles.FindByKey(ctx, tenant.RoleOwner)
	if err != nil {
		return nil, xerrors.NewProvisionError(xerrors.CodeRoleFailed, "owner role lookup", err)
	}
	err = s.roles.UpsertAssignment(ctx, &tenant.RoleAssignment{
		UserID:   ownerID,
		TenantID: t.ID,
		RoleID:   role.ID,
	})
	if err != nil {
		return nil, xerrors.NewProvisionError(xerrors.CodeRoleFailed, "owner role assignment", err)
	}

	// Step 4: edge host + DNS. Best-effort relative to DB state; the tenant
	// row stays either way and a retry repeats only this step.
	s.track(ctx, label, "domain", StateRunning, "")
	fqdn := subdomain.FQDN(label, s.rootDomain)
	if err := s.provisionDomain(ctx, t, label, fqdn); err != nil {
		return nil, err
	}

	s.logger.Info("tenant provisioned",
		zap.String("tenant_id", t.ID),
		zap.String("subdomain", label),
		zap.String("fqdn", fqdn),
	)
	s.notifyProvisioned(ctx, ownerID, t, fqdn)

	return &Result{
		TenantID:    t.ID,
		FQDN:        fqdn,
		RedirectURL: fmt.Sprintf("https://%s/", fqdn),
	}, nil
}

// ProvisionDomain repeats only the domain step for an existing tenant. Used by
// the internal domains endpoint to repair a stuck provisioning.
func (s *Service) ProvisionDomain(ctx context.Context, label string) (*Result, error) {
	label, err := subdomain.Normalize(label)
	if err != nil {
		return nil, err
	}

	t, err := s.tenants.FindBySubdomain(ctx, label)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}

	fqdn := subdomain.FQDN(label, s.rootDomain)
	if err := s.provisionDomain(ctx, t, label, fqdn); err != nil {
		return nil, err
	}
	return &Result{TenantID: t.ID, FQDN: fqdn, RedirectURL: fmt.Sprintf("https://%s/", fqdn)}, nil
}

func (s *Service) resolveOwner(ctx context.Context, in Input) (string, error) {
	if in.OwnerUserID != "" {
		return in.OwnerUserID, nil
	}
	if in.OwnerEmail == "" {
		return "", fmt.Errorf("%w: either user_id or owner_email is required", xerrors.ErrInvalidInput)
	}

	userID, err := s.idp.InviteUserByEmail(ctx, in.OwnerEmail, map[string]interface{}{
		"invited_for": "agency_owner",
	})
	if err != nil && !errors.Is(err, identity.ErrAlreadyRegistered) {
		return "", xerrors.NewProvisionError(xerrors.CodeTenantCreateFailed, "owner identity", err)
	}
	// An already-registered conflict can come back without a resolved user
	// id. Proceeding would write a membership row keyed on "".
	if userID == "" {
		return "", xerrors.NewProvisionError(xerrors.CodeTenantCreateFailed, "owner identity",
			fmt.Errorf("identity provider returned no user id for %s", in.OwnerEmail))
	}
	return userID, nil
}

// findOrCreateTenant implements the idempotent Step 1. A uniqueness violation
// on subdomain means an earlier attempt (or a concurrent one) already created
// the row: reload it and check lineage through the requesting user's
// membership. No membership on the existing tenant means the subdomain belongs
// to someone else.
func (s *Service) findOrCreateTenant(ctx context.Context, ownerID, name, label, locale string) (*tenant.Tenant, error) {
	existing, err := s.tenants.FindBySubdomain(ctx, label)
	if err != nil && !errors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.NewProvisionError(xerrors.CodeTenantCreateFailed, "tenant lookup", err)
	}

	if existing == nil {
		if locale == "" {
			locale = "en"
		}
		t := &tenant.Tenant{
			ID:        id.New(),
			Name:      name,
			Subdomain: label,
			Locale:    locale,
		}
		err = s.tenants.Create(ctx, t)
		switch {
		case err == nil:
			return t, nil
		case errors.Is(err, xerrors.ErrConflict):
			// Lost the race; fall through to lineage check on the winner.
			existing, err = s.tenants.FindBySubdomain(ctx, label)
			if err != nil {
				return nil, xerrors.NewProvisionError(xerrors.CodeTenantCreateFailed, "tenant reload", err)
			}
		default:
			return nil, xerrors.NewProvisionError(xerrors.CodeTenantCreateFailed, "tenant insert", err)
		}
	}

	if _, err := s.memberships.Find(ctx, ownerID, existing.ID); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.NewProvisionError(xerrors.CodeSubdomainTaken, "tenant lineage",
				fmt.Errorf("subdomain %s is taken: %w", label, xerrors.ErrConflict))
		}
		return nil, xerrors.NewProvisionError(xerrors.CodeTenantCreateFailed, "lineage check", err)
	}
	return existing, nil
}

func (s *Service) track(ctx context.Context, label, step, state, detail string) {
	if s.tracker != nil {
		s.tracker.Set(ctx, label, step, state, detail)
	}
}

// stepOf names the failed step for the status snapshot.
func stepOf(err error) string {
	if pe, ok := xerrors.AsProvisionError(err); ok {
		return pe.Step
	}
	return "validation"
}

// notifyProvisioned stores and pushes the completion notice. Best effort:
// the provisioning result itself carries everything the caller needs.
func (s *Service) notifyProvisioned(ctx context.Context, ownerID string, t *tenant.Tenant, fqdn string) {
	if s.notifications == nil {
		return
	}
	n := &notification.Notification{
		ID:       id.New(),
		UserID:   ownerID,
		TenantID: t.ID,
		Type:     notification.TypeProvisioningComplete,
		Title:    "Your agency is ready",
		Body:     fmt.Sprintf("%s is live at https://%s/", t.Name, fqdn),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Warn("failed to store provisioning notification",
			zap.String("user_id", ownerID), zap.Error(err))
		return
	}
	if s.broadcaster != nil {
		s.broadcaster.Push(ownerID, n)
	}
}

func (s *Service) provisionDomain(ctx context.Context, t *tenant.Tenant, label, fqdn string) error {
	target, err := s.edgeHost.EnsureDomain(ctx, fqdn)
	if err != nil {
		return xerrors.NewProvisionError(xerrors.CodeProvisioningFailed, "edge host domain", err)
	}

	if err := s.registrar.EnsureCNAME(ctx, s.zone, label, target); err != nil {
		return xerrors.NewProvisionError(xerrors.CodeProvisioningFailed, "cname record", err)
	}
	if err := s.registrar.RefreshZone(ctx, s.zone); err != nil {
		// Zone publish lag only delays convergence; the record is in place.
		s.logger.Warn("zone refresh failed", zap.String("zone", s.zone), zap.Error(err))
	}

	if err := s.tenants.MarkDomainConfirmed(ctx, t.ID, target); err != nil {
		return xerrors.NewProvisionError(xerrors.CodeProvisioningFailed, "domain confirm", err)
	}
	return nil
}
