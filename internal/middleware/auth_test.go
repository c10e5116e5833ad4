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
	"go.uber.org/zap"

	"spamguard/internal/models"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims *models.Claims) string {
	t.Helper()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api")
	api.Use(AuthMiddleware(testSecret, zap.NewNop()))
	api.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, Identity(c))
	})
	admin := api.Group("/admin")
	admin.Use(RequireAdmin())
	admin.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func request(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_DepositsIdentity(t *testing.T) {
	router := newAuthRouter()
	token := signToken(t, &models.Claims{AccountID: "acct-1", Tier: models.TierBusiness, Role: models.RoleUser})

	w := request(router, "/api/whoami", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "acct-1")
	assert.Contains(t, w.Body.String(), models.TierBusiness)
}

func TestAuthMiddleware_MissingTierDefaultsToFree(t *testing.T) {
	router := newAuthRouter()
	token := signToken(t, &models.Claims{AccountID: "acct-1", Role: models.RoleUser})

	w := request(router, "/api/whoami", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.TierFree)
}

func TestAuthMiddleware_RejectsBadTokens(t *testing.T) {
	router := newAuthRouter()

	assert.Equal(t, http.StatusUnauthorized, request(router, "/api/whoami", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(router, "/api/whoami", "not-a-jwt").Code)

	// Token signed with the wrong key.
	claims := &models.Claims{AccountID: "acct-1"}
	claims.RegisteredClaims = jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(router, "/api/whoami", forged).Code)
}

func TestRequireAdmin_RoleGate(t *testing.T) {
	router := newAuthRouter()

	user := signToken(t, &models.Claims{AccountID: "acct-1", Role: models.RoleUser})
	w := request(router, "/api/admin/ok", user)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "not authorized")

	admin := signToken(t, &models.Claims{AccountID: "acct-2", Role: models.RoleAdmin})
	assert.Equal(t, http.StatusOK, request(router, "/api/admin/ok", admin).Code)
}
