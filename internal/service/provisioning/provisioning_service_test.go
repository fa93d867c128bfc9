package provisioning

import (
	"context"
	"errors"
	"testing"

	"qg-chatting-service/internal/adapter/identity"
	"qg-chatting-service/internal/domain/notification"
	"qg-chatting-service/internal/domain/tenant"
	xerrors "qg-chatting-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTenantStore struct {
	bySubdomain map[string]*tenant.Tenant
	createErr   error
	confirmed   map[string]string
}

func newFakeTenantStore() *fakeTenantStore {
	return &fakeTenantStore{
		bySubdomain: make(map[string]*tenant.Tenant),
		confirmed:   make(map[string]string),
	}
}

func (s *fakeTenantStore) Create(_ context.Context, t *tenant.Tenant) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.bySubdomain[t.Subdomain]; exists {
		return xerrors.ErrConflict
	}
	s.bySubdomain[t.Subdomain] = t
	return nil
}

func (s *fakeTenantStore) FindBySubdomain(_ context.Context, sub string) (*tenant.Tenant, error) {
	if t, ok := s.bySubdomain[sub]; ok {
		return t, nil
	}
	return nil, xerrors.ErrNotFound
}

func (s *fakeTenantStore) MarkDomainConfirmed(_ context.Context, id, target string) error {
	s.confirmed[id] = target
	return nil
}

type fakeMembershipStore struct {
	rows      map[string]*tenant.Membership
	upsertErr error
	upserts   int
}

func newFakeMembershipStore() *fakeMembershipStore {
	return &fakeMembershipStore{rows: make(map[string]*tenant.Membership)}
}

func (s *fakeMembershipStore) key(userID, tenantID string) string { return userID + "/" + tenantID }

func (s *fakeMembershipStore) Upsert(_ context.Context, m *tenant.Membership) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts++
	if _, exists := s.rows[s.key(m.UserID, m.TenantID)]; !exists {
		s.rows[s.key(m.UserID, m.TenantID)] = m
	}
	return nil
}

func (s *fakeMembershipStore) Find(_ context.Context, userID, tenantID string) (*tenant.Membership, error) {
	if m, ok := s.rows[s.key(userID, tenantID)]; ok {
		return m, nil
	}
	return nil, xerrors.ErrNotFound
}

type fakeRoleStore struct {
	assignments int
	assignErr   error
}

func (s *fakeRoleStore) FindByKey(_ context.Context, key string) (*tenant.Role, error) {
	if key == tenant.RoleOwner {
		return &tenant.Role{ID: 1, Key: key}, nil
	}
	return nil, xerrors.ErrNotFound
}

func (s *fakeRoleStore) UpsertAssignment(_ context.Context, _ *tenant.RoleAssignment) error {
	if s.assignErr != nil {
		return s.assignErr
	}
	s.assignments++
	return nil
}

type fakeEdgeHost struct {
	target string
	err    error
	calls  int
}

func (e *fakeEdgeHost) EnsureDomain(_ context.Context, _ string) (string, error) {
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	return e.target, nil
}

type fakeRegistrar struct {
	cnames     map[string]string
	cnameErr   error
	refreshErr error
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{cnames: make(map[string]string)}
}

func (r *fakeRegistrar) EnsureCNAME(_ context.Context, _, label, target string) error {
	if r.cnameErr != nil {
		return r.cnameErr
	}
	r.cnames[label] = target
	return nil
}

func (r *fakeRegistrar) RefreshZone(_ context.Context, _ string) error {
	return r.refreshErr
}

type fakeIDP struct {
	userID  string
	err     error
	invited []string
}

func (i *fakeIDP) InviteUserByEmail(_ context.Context, email string, _ map[string]interface{}) (string, error) {
	i.invited = append(i.invited, email)
	return i.userID, i.err
}

type fixture struct {
	tenants     *fakeTenantStore
	memberships *fakeMembershipStore
	roles       *fakeRoleStore
	edge        *fakeEdgeHost
	registrar   *fakeRegistrar
	idp         *fakeIDP
	svc         *Service
}

func newFixture() *fixture {
	f := &fixture{
		tenants:     newFakeTenantStore(),
		memberships: newFakeMembershipStore(),
		roles:       &fakeRoleStore{},
		edge:        &fakeEdgeHost{target: "edge.qg-host.net"},
		registrar:   newFakeRegistrar(),
		idp:         &fakeIDP{userID: "u-owner"},
	}
	f.svc = NewService(
		f.tenants, f.memberships, f.roles, f.edge, f.registrar, f.idp,
		"qgchatting.com", "qgchatting.com", "https://qgchatting.com",
		zap.NewNop(),
	)
	return f
}

func TestProvisionTenant(t *testing.T) {
	ctx := context.Background()

	in := Input{
		OwnerUserID: "u-1",
		AgencyName:  "Acme Agency",
		Subdomain:   "Acme",
	}

	t.Run("full provisioning", func(t *testing.T) {
		f := newFixture()

		result, err := f.svc.ProvisionTenant(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, "acme.qgchatting.com", result.FQDN)
		assert.Equal(t, "https://acme.qgchatting.com/", result.RedirectURL)
		assert.NotEmpty(t, result.TenantID)

		created := f.tenants.bySubdomain["acme"]
		require.NotNil(t, created)
		assert.Equal(t, "en", created.Locale)

		m, err := f.memberships.Find(ctx, "u-1", created.ID)
		require.NoError(t, err)
		assert.True(t, m.IsOwner)
		assert.Equal(t, 1, f.roles.assignments)

		assert.Equal(t, "edge.qg-host.net", f.registrar.cnames["acme"])
		assert.Equal(t, "edge.qg-host.net", f.tenants.confirmed[created.ID])
	})

	t.Run("resubmission converges on the same tenant", func(t *testing.T) {
		f := newFixture()

		first, err := f.svc.ProvisionTenant(ctx, in)
		require.NoError(t, err)

		second, err := f.svc.ProvisionTenant(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, first.TenantID, second.TenantID)
		assert.Len(t, f.tenants.bySubdomain, 1)
	})

	t.Run("subdomain held by another owner", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.ProvisionTenant(ctx, Input{
			OwnerUserID: "u-other", AgencyName: "Other", Subdomain: "acme",
		})
		require.NoError(t, err)

		_, err = f.svc.ProvisionTenant(ctx, in)
		require.Error(t, err)

		pe, ok := xerrors.AsProvisionError(err)
		require.True(t, ok)
		assert.Equal(t, xerrors.CodeSubdomainTaken, pe.Code)
		assert.ErrorIs(t, err, xerrors.ErrConflict)
	})

	t.Run("create race falls through to lineage check", func(t *testing.T) {
		f := newFixture()
		// Simulate a concurrent winner committing between lookup and insert.
		winner := &tenant.Tenant{ID: "t-won", Subdomain: "acme"}
		f.tenants.createErr = xerrors.ErrConflict
		f.tenants.bySubdomain["acme"] = winner
		require.NoError(t, f.memberships.Upsert(ctx, &tenant.Membership{
			UserID: "u-1", TenantID: "t-won", IsOwner: true,
		}))

		result, err := f.svc.ProvisionTenant(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "t-won", result.TenantID)
	})

	t.Run("owner resolved by email through the identity provider", func(t *testing.T) {
		f := newFixture()
		f.idp.userID = "u-invited"

		result, err := f.svc.ProvisionTenant(ctx, Input{
			OwnerEmail: "owner@acme.test", AgencyName: "Acme Agency", Subdomain: "acme",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"owner@acme.test"}, f.idp.invited)

		m, err := f.memberships.Find(ctx, "u-invited", result.TenantID)
		require.NoError(t, err)
		assert.True(t, m.IsOwner)
	})

	t.Run("already registered conflict without a user id fails the owner step", func(t *testing.T) {
		f := newFixture()
		f.idp.userID = ""
		f.idp.err = identity.ErrAlreadyRegistered

		_, err := f.svc.ProvisionTenant(ctx, Input{
			OwnerEmail: "owner@acme.test", AgencyName: "Acme Agency", Subdomain: "acme",
		})
		pe, ok := xerrors.AsProvisionError(err)
		require.True(t, ok)
		assert.Equal(t, xerrors.CodeTenantCreateFailed, pe.Code)
		assert.Empty(t, f.tenants.bySubdomain, "no tenant may be keyed on an empty owner id")
		assert.Empty(t, f.memberships.rows)
	})

	t.Run("invalid subdomain rejected before any write", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.ProvisionTenant(ctx, Input{OwnerUserID: "u-1", Subdomain: "-bad-"})
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
		assert.Empty(t, f.tenants.bySubdomain)
	})

	t.Run("membership failure is step tagged and leaves the tenant", func(t *testing.T) {
		f := newFixture()
		f.memberships.upsertErr = errors.New("connection reset")

		_, err := f.svc.ProvisionTenant(ctx, in)
		pe, ok := xerrors.AsProvisionError(err)
		require.True(t, ok)
		assert.Equal(t, xerrors.CodeMembershipFailed, pe.Code)
		assert.NotEmpty(t, f.tenants.bySubdomain, "tenant row must survive for the retry")
	})

	t.Run("role failure is step tagged", func(t *testing.T) {
		f := newFixture()
		f.roles.assignErr = errors.New("deadlock")

		_, err := f.svc.ProvisionTenant(ctx, in)
		pe, ok := xerrors.AsProvisionError(err)
		require.True(t, ok)
		assert.Equal(t, xerrors.CodeRoleFailed, pe.Code)
	})

	t.Run("edge host failure leaves DB state for retry", func(t *testing.T) {
		f := newFixture()
		f.edge.err = errors.New("gateway timeout")

		_, err := f.svc.ProvisionTenant(ctx, in)
		pe, ok := xerrors.AsProvisionError(err)
		require.True(t, ok)
		assert.Equal(t, xerrors.CodeProvisioningFailed, pe.Code)

		created := f.tenants.bySubdomain["acme"]
		require.NotNil(t, created)
		assert.Empty(t, f.tenants.confirmed[created.ID])

		// Retry with the upstream healthy finishes the domain step.
		f.edge.err = nil
		result, err := f.svc.ProvisionTenant(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, created.ID, result.TenantID)
		assert.Equal(t, "edge.qg-host.net", f.tenants.confirmed[created.ID])
	})

	t.Run("zone refresh failure does not fail provisioning", func(t *testing.T) {
		f := newFixture()
		f.registrar.refreshErr = errors.New("refresh unavailable")

		_, err := f.svc.ProvisionTenant(ctx, in)
		assert.NoError(t, err)
	})
}

func TestProvisionDomain(t *testing.T) {
	ctx := context.Background()

	t.Run("repairs the domain step only", func(t *testing.T) {
		f := newFixture()
		f.tenants.bySubdomain["acme"] = &tenant.Tenant{ID: "t-1", Subdomain: "acme"}

		result, err := f.svc.ProvisionDomain(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "t-1", result.TenantID)
		assert.Equal(t, "edge.qg-host.net", f.tenants.confirmed["t-1"])
		assert.Zero(t, f.memberships.upserts)
	})

	t.Run("unknown subdomain", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.ProvisionDomain(ctx, "ghost")
		assert.ErrorIs(t, err, xerrors.ErrNotFound)
	})
}

type fakeTracker struct {
	states []Status
}

func (t *fakeTracker) Set(_ context.Context, label, step, state, detail string) {
	t.states = append(t.states, Status{Subdomain: label, Step: step, State: state, Detail: detail})
}

func (t *fakeTracker) Snapshot(_ context.Context, label string) (*Status, error) {
	for i := len(t.states) - 1; i >= 0; i-- {
		if t.states[i].Subdomain == label {
			return &t.states[i], nil
		}
	}
	return nil, xerrors.ErrNotFound
}

type fakeNotifier struct {
	created []*notification.Notification
}

func (n *fakeNotifier) Create(_ context.Context, m *notification.Notification) error {
	n.created = append(n.created, m)
	return nil
}

type fakePusher struct {
	pushed []string
}

func (p *fakePusher) Push(userID string, _ *notification.Notification) {
	p.pushed = append(p.pushed, userID)
}

func TestProvisioningProgress(t *testing.T) {
	ctx := context.Background()
	in := Input{OwnerUserID: "u-1", AgencyName: "Acme Agency", Subdomain: "acme"}

	t.Run("success ends in done and notifies the owner", func(t *testing.T) {
		f := newFixture()
		tracker := &fakeTracker{}
		notifier := &fakeNotifier{}
		pusher := &fakePusher{}
		f.svc.WithStatusTracker(tracker).WithNotifier(notifier, pusher)

		_, err := f.svc.ProvisionTenant(ctx, in)
		require.NoError(t, err)

		last, err := tracker.Snapshot(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, StateDone, last.State)

		require.Len(t, notifier.created, 1)
		n := notifier.created[0]
		assert.Equal(t, "u-1", n.UserID)
		assert.Equal(t, notification.TypeProvisioningComplete, n.Type)
		assert.Contains(t, n.Body, "acme.qgchatting.com")
		assert.Equal(t, []string{"u-1"}, pusher.pushed)
	})

	t.Run("failure records the failed step", func(t *testing.T) {
		f := newFixture()
		tracker := &fakeTracker{}
		notifier := &fakeNotifier{}
		f.svc.WithStatusTracker(tracker).WithNotifier(notifier, &fakePusher{})
		f.edge.err = errors.New("edge host down")

		_, err := f.svc.ProvisionTenant(ctx, in)
		require.Error(t, err)

		last, err := tracker.Snapshot(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, StateFailed, last.State)
		assert.Equal(t, "edge host domain", last.Step)
		assert.Empty(t, notifier.created, "no completion notice on failure")
	})
}
