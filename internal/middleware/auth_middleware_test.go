package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"qg-chatting-service/internal/adapter/identity"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeVerifier struct {
	ident *identity.Identity
	err   error
}

func (v *fakeVerifier) VerifyToken(_ context.Context, _ string) (*identity.Identity, error) {
	return v.ident, v.err
}

func optionalAuthRouter(v TokenVerifier) (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.GET("/", NewAuthMiddleware(v).OptionalAuth(), func(c *gin.Context) {
		seen, _ = GetUserID(c)
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func TestOptionalAuth(t *testing.T) {
	t.Run("no token passes through anonymously", func(t *testing.T) {
		r, seen := optionalAuthRouter(&fakeVerifier{err: errors.New("must not be called")})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, *seen)
	})

	t.Run("valid token resolves the identity", func(t *testing.T) {
		r, seen := optionalAuthRouter(&fakeVerifier{ident: &identity.Identity{UserID: "u-1"}})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u-1", *seen)
	})

	t.Run("presented but invalid token still fails", func(t *testing.T) {
		r, _ := optionalAuthRouter(&fakeVerifier{err: errors.New("expired")})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
