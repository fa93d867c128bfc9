package onboarding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"qg-chatting-service/internal/domain/tenant"
	xerrors "qg-chatting-service/internal/pkg/errors"
	"qg-chatting-service/internal/service/provisioning"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTenantStore struct {
	bySubdomain map[string]*tenant.Tenant
}

func (s *fakeTenantStore) Create(_ context.Context, t *tenant.Tenant) error {
	s.bySubdomain[t.Subdomain] = t
	return nil
}

func (s *fakeTenantStore) FindBySubdomain(_ context.Context, sub string) (*tenant.Tenant, error) {
	if t, ok := s.bySubdomain[sub]; ok {
		return t, nil
	}
	return nil, xerrors.ErrNotFound
}

func (s *fakeTenantStore) MarkDomainConfirmed(_ context.Context, _, _ string) error { return nil }

type fakeMembershipStore struct {
	owners []string
}

func (s *fakeMembershipStore) Upsert(_ context.Context, m *tenant.Membership) error {
	s.owners = append(s.owners, m.UserID)
	return nil
}

func (s *fakeMembershipStore) Find(_ context.Context, _, _ string) (*tenant.Membership, error) {
	return nil, xerrors.ErrNotFound
}

type fakeRoleStore struct{}

func (fakeRoleStore) FindByKey(_ context.Context, key string) (*tenant.Role, error) {
	return &tenant.Role{ID: 1, Key: key}, nil
}

func (fakeRoleStore) UpsertAssignment(_ context.Context, _ *tenant.RoleAssignment) error {
	return nil
}

type fakeEdgeHost struct{}

func (fakeEdgeHost) EnsureDomain(_ context.Context, _ string) (string, error) {
	return "edge.qg-host.net", nil
}

type fakeRegistrar struct{}

func (fakeRegistrar) EnsureCNAME(_ context.Context, _, _, _ string) error { return nil }

func (fakeRegistrar) RefreshZone(_ context.Context, _ string) error { return nil }

type fakeIDP struct {
	userID  string
	invited []string
}

func (i *fakeIDP) InviteUserByEmail(_ context.Context, email string, _ map[string]interface{}) (string, error) {
	i.invited = append(i.invited, email)
	return i.userID, nil
}

type harness struct {
	memberships *fakeMembershipStore
	idp         *fakeIDP
	router      *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		memberships: &fakeMembershipStore{},
		idp:         &fakeIDP{userID: "u-invited"},
	}
	svc := provisioning.NewService(
		&fakeTenantStore{bySubdomain: make(map[string]*tenant.Tenant)},
		h.memberships, fakeRoleStore{}, fakeEdgeHost{}, fakeRegistrar{}, h.idp,
		"qgchatting.com", "qgchatting.com", "https://qgchatting.com",
		zap.NewNop(),
	)
	handler := NewOnboardingHandler(svc, nil)

	h.router = gin.New()
	h.router.POST("/onboarding/owner", func(c *gin.Context) {
		c.Set("user_id", "u-bearer")
	}, handler.OnboardOwner)
	return h
}

func (h *harness) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/onboarding/owner", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.router.ServeHTTP(w, req)
	return w
}

func TestOnboardOwnerIdentitySources(t *testing.T) {
	t.Run("defaults to the bearer identity", func(t *testing.T) {
		h := newHarness(t)

		w := h.post(t, `{"name":"Acme","subdomain":"acme"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, []string{"u-bearer"}, h.memberships.owners)
		assert.Empty(t, h.idp.invited)
	})

	t.Run("explicit user_id overrides the bearer", func(t *testing.T) {
		h := newHarness(t)

		w := h.post(t, `{"name":"Acme","subdomain":"acme","user_id":"u-explicit"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, []string{"u-explicit"}, h.memberships.owners)
		assert.Empty(t, h.idp.invited)
	})

	t.Run("owner_email invites through the identity provider", func(t *testing.T) {
		h := newHarness(t)

		w := h.post(t, `{"name":"Acme","subdomain":"acme","owner_email":"owner@acme.test"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, []string{"owner@acme.test"}, h.idp.invited)
		assert.Equal(t, []string{"u-invited"}, h.memberships.owners)
	})
}
