package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/internal/infrastructure/auth"
	"github.com/wms/backend/internal/infrastructure/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService(expiration time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-that-is-long-enough-0123",
		AccessTokenExpiration: expiration,
		Issuer:                "wms-backend-test",
	})
}

func newAuthTestRouter(jwtService *auth.JWTService) *gin.Engine {
	engine := gin.New()
	engine.Use(JWTAuthMiddleware(jwtService))
	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	engine.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  GetJWTUserID(c),
			"username": GetJWTUsername(c),
			"role":     GetJWTRole(c),
		})
	})
	return engine
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	jwtService := newTestJWTService(15 * time.Minute)
	engine := newAuthTestRouter(jwtService)

	userID := uuid.New()
	token, _, err := jwtService.GenerateToken(userID, "operator1", auth.RoleOperator)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
	assert.Contains(t, w.Body.String(), "operator1")
}

func TestJWTAuthMiddleware_MissingHeader(t *testing.T) {
	engine := newAuthTestRouter(newTestJWTService(15 * time.Minute))

	req := httptest.NewRequest("GET", "/whoami", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestJWTAuthMiddleware_ExpiredToken(t *testing.T) {
	expired := newTestJWTService(-time.Minute)
	engine := newAuthTestRouter(expired)

	token, _, err := expired.GenerateToken(uuid.New(), "operator1", auth.RoleOperator)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestJWTAuthMiddleware_SkipPaths(t *testing.T) {
	engine := newAuthTestRouter(newTestJWTService(15 * time.Minute))

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireApprover(t *testing.T) {
	jwtService := newTestJWTService(15 * time.Minute)

	engine := gin.New()
	engine.Use(JWTAuthMiddleware(jwtService))
	engine.POST("/approve", RequireApprover(), func(c *gin.Context) {
		c.String(http.StatusOK, "approved")
	})

	tests := []struct {
		role     auth.Role
		expected int
	}{
		{auth.RoleOperator, http.StatusForbidden},
		{auth.RoleQC, http.StatusOK},
		{auth.RoleAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			token, _, err := jwtService.GenerateToken(uuid.New(), "user", tt.role)
			require.NoError(t, err)

			req := httptest.NewRequest("POST", "/approve", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
		})
	}
}
