package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, tokens *jwt.Manager, extra ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.Use(RequestIDMiddleware(), JWTAuthMiddleware(tokens, zap.NewNop()))
	handlers := append(extra, func(c *gin.Context) {
		id, _ := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"subject": id.Subject, "role": id.Role})
	})
	r.GET("/", handlers...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware(t *testing.T) {
	tokens, err := jwt.NewManager("secret", "raffle-api", time.Hour)
	require.NoError(t, err)
	r := newRouter(t, tokens)

	w := do(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(r, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"UNAUTHORIZED"`)

	token, err := tokens.Issue("buyer-7", "b@example.com", models.RoleBuyer)
	require.NoError(t, err)
	w = do(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":"buyer-7","role":"buyer"}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	tokens, err := jwt.NewManager("secret", "", time.Hour)
	require.NoError(t, err)
	r := newRouter(t, tokens, RequireRole(models.RoleAdmin))

	buyer, _ := tokens.Issue("buyer-1", "", models.RoleBuyer)
	assert.Equal(t, http.StatusForbidden, do(r, buyer).Code)

	admin, _ := tokens.Issue("admin-1", "", models.RoleAdmin)
	assert.Equal(t, http.StatusOK, do(r, admin).Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, zap.NewNop())
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, do(r, "").Code)
	assert.Equal(t, http.StatusNoContent, do(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "").Code)

	rl.Cleanup(time.Now().Add(time.Hour))
	assert.Equal(t, http.StatusNoContent, do(r, "").Code)
}
