package agency

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qg-chatting-service/internal/domain/subscription"
	"qg-chatting-service/internal/domain/tenant"
	xerrors "qg-chatting-service/internal/pkg/errors"
	"qg-chatting-service/internal/service/access"
	"qg-chatting-service/internal/service/health"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTenantStore struct {
	tenants map[string]*tenant.Tenant
}

func (s *fakeTenantStore) FindBySubdomain(_ context.Context, sub string) (*tenant.Tenant, error) {
	if t, ok := s.tenants[sub]; ok {
		return t, nil
	}
	return nil, xerrors.ErrNotFound
}

type fakeMembershipStore struct {
	rows map[string]*tenant.Membership
}

func (s *fakeMembershipStore) Find(_ context.Context, userID, tenantID string) (*tenant.Membership, error) {
	if m, ok := s.rows[userID+"/"+tenantID]; ok {
		return m, nil
	}
	return nil, xerrors.ErrNotFound
}

type fakeSubscriptionStore struct{}

func (fakeSubscriptionStore) FindActiveByTenant(_ context.Context, _ string) (*subscription.Subscription, error) {
	return nil, xerrors.ErrNotFound
}

type harness struct {
	tenants     *fakeTenantStore
	memberships *fakeMembershipStore
	router      *gin.Engine
}

// newHarness wires the status route twice: the bare path serves anonymous
// polls, the authed path simulates a verified bearer for userID.
func newHarness(t *testing.T, userID string) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		tenants:     &fakeTenantStore{tenants: make(map[string]*tenant.Tenant)},
		memberships: &fakeMembershipStore{rows: make(map[string]*tenant.Membership)},
	}
	accessSvc := access.NewService(h.tenants, h.memberships, fakeSubscriptionStore{}, zap.NewNop())
	handler := NewAgencyHandler(accessSvc, health.NewService(nil, zap.NewNop()), "qgchatting.com")

	h.router = gin.New()
	h.router.GET("/agency/status", handler.Status)
	h.router.GET("/authed/agency/status", func(c *gin.Context) {
		c.Set("user_id", userID)
	}, handler.Status)
	return h
}

func (h *harness) get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.router.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestStatusWithoutBearer(t *testing.T) {
	t.Run("serves the limited readiness view", func(t *testing.T) {
		h := newHarness(t, "")
		h.tenants.tenants["acme"] = &tenant.Tenant{ID: "t-1", Subdomain: "acme"}

		w, body := h.get(t, "/agency/status?subdomain=acme")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		data := body["data"].(map[string]interface{})
		assert.Equal(t, false, data["ready"])
		status := data["status"].(map[string]interface{})
		assert.Equal(t, false, status["domain_confirmed"])

		// Membership and payment state stay behind the bearer token.
		assert.NotContains(t, data, "is_accessible")
		assert.NotContains(t, data, "payment_status")
	})

	t.Run("unknown subdomain is not found", func(t *testing.T) {
		h := newHarness(t, "")
		w, _ := h.get(t, "/agency/status?subdomain=ghost")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestStatusWithBearer(t *testing.T) {
	t.Run("non member is rejected", func(t *testing.T) {
		h := newHarness(t, "u-outsider")
		h.tenants.tenants["acme"] = &tenant.Tenant{ID: "t-1", Subdomain: "acme"}

		w, _ := h.get(t, "/authed/agency/status?subdomain=acme")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("full view carries the access decision", func(t *testing.T) {
		h := newHarness(t, "u-member")
		h.tenants.tenants["acme"] = &tenant.Tenant{ID: "t-1", Subdomain: "acme", CreatedAt: time.Now()}
		h.memberships.rows["u-member/t-1"] = &tenant.Membership{UserID: "u-member", TenantID: "t-1", IsOwner: true}

		w, body := h.get(t, "/authed/agency/status?subdomain=acme")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		data := body["data"].(map[string]interface{})
		assert.Equal(t, true, data["is_accessible"])
		assert.Equal(t, "grace_period", data["payment_status"])
	})
}
