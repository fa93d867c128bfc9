package edgehost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "qg-chatting-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, ProjectID: "proj-1", Token: "tok"}, zap.NewNop())
}

func TestEnsureDomain(t *testing.T) {
	ctx := context.Background()

	t.Run("registers and returns cname target", func(t *testing.T) {
		var gotAuth string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/projects/proj-1/domains", r.URL.Path)
			w.Write([]byte(`{"name":"acme.qgchatting.com","projectId":"proj-1","cnameTarget":"edge.qg-host.net","verified":false}`))
		})

		target, err := c.EnsureDomain(ctx, "acme.qgchatting.com")
		require.NoError(t, err)
		assert.Equal(t, "edge.qg-host.net", target)
		assert.Equal(t, "Bearer tok", gotAuth)
	})

	t.Run("conflict under own project is idempotent", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				w.WriteHeader(http.StatusConflict)
				return
			}
			assert.Equal(t, "/v1/projects/proj-1/domains/acme.qgchatting.com", r.URL.Path)
			w.Write([]byte(`{"name":"acme.qgchatting.com","projectId":"proj-1","cnameTarget":"edge.qg-host.net","verified":true}`))
		})

		target, err := c.EnsureDomain(ctx, "acme.qgchatting.com")
		require.NoError(t, err)
		assert.Equal(t, "edge.qg-host.net", target)
	})

	t.Run("conflict held by another project", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				w.WriteHeader(http.StatusConflict)
				return
			}
			// Our project cannot see the domain, so it belongs to someone else.
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := c.EnsureDomain(ctx, "acme.qgchatting.com")
		assert.ErrorIs(t, err, xerrors.ErrConflict)
	})

	t.Run("platform error surfaces as upstream", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := c.EnsureDomain(ctx, "acme.qgchatting.com")
		assert.ErrorIs(t, err, xerrors.ErrUpstream)
	})
}

func TestDomainExists(t *testing.T) {
	ctx := context.Background()

	t.Run("registered", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"name":"acme.qgchatting.com","projectId":"proj-1","cnameTarget":"edge.qg-host.net"}`))
		})
		ok, err := c.DomainExists(ctx, "acme.qgchatting.com")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("absent", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		ok, err := c.DomainExists(ctx, "ghost.qgchatting.com")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
