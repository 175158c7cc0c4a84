package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/authgate/internal/config"
	"github.com/avolkov/authgate/internal/token"
)

func newTokenService(t *testing.T, ttl time.Duration) *token.Service {
	t.Helper()

	svc, err := token.NewService(&config.TokenConfig{
		Secret: "test-secret",
		TTL:    config.Duration(ttl),
	})
	require.NoError(t, err)
	return svc
}

func newAuthRouter(svc *token.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/v1/me", RequireAuth(AuthConfig{Tokens: svc}), func(c *gin.Context) {
		identity := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"username": identity.Username, "user_id": identity.UserID})
	})
	return router
}

func TestRequireAuth_ValidToken(t *testing.T) {
	t.Parallel()

	svc := newTokenService(t, time.Minute)
	router := newAuthRouter(svc)

	signed, err := svc.Issue("alice", "user-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set(HeaderAuthorization, "Bearer "+signed)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"alice","user_id":"user-1"}`, w.Body.String())
}

func TestRequireAuth_UniformFailure(t *testing.T) {
	t.Parallel()

	svc := newTokenService(t, time.Minute)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"id":  "user-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-token"},
		{name: "expired token", header: "Bearer " + expired},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newAuthRouter(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set(HeaderAuthorization, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			// Same status, same body, no hint which check failed
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"Could not validate user."}`, w.Body.String())
			assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestGetIdentity_Unset(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Nil(t, GetIdentity(c))
}
