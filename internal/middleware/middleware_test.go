package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenscope/greenscope/auth"
	"github.com/greenscope/greenscope/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))

	// Another client is unaffected.
	assert.True(t, rl.Allow("5.6.7.8"))

	// Attempts fall out of the window.
	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow(fmt.Sprintf("10.0.0.%d", i)))
	}
	assert.Len(t, rl.hits, 100)

	// Once every attempt has aged out, the next call drops the idle keys
	// instead of keeping one bucket per IP forever.
	now = now.Add(2 * time.Minute)
	assert.True(t, rl.Allow("fresh-client"))
	assert.Len(t, rl.hits, 1)
	assert.Contains(t, rl.hits, "fresh-client")
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestBearerAuth(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	company := &store.Company{Name: "Acme", MainLocation: "Dubai", BusinessSector: store.SectorLogistics}
	require.NoError(t, s.CreateCompany(ctx, company))

	active := &store.User{Email: "active@example.com", HashedPassword: "x", FullName: "Active",
		Role: store.RoleManager, IsActive: true, CompanyID: company.ID}
	require.NoError(t, s.CreateUser(ctx, active))

	disabled := &store.User{Email: "disabled@example.com", HashedPassword: "x", FullName: "Disabled",
		Role: store.RoleManager, IsActive: false, CompanyID: company.ID}
	require.NoError(t, s.CreateUser(ctx, disabled))

	issuer := auth.NewIssuer("test-secret", 30*time.Minute, 7*24*time.Hour)

	r := gin.New()
	r.Use(BearerAuth(issuer, s))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).Email)
	})
	r.GET("/admin", RequireRole(store.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(path, token string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("missing token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("/me", "").Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("/me", "not-a-jwt").Code)
	})

	t.Run("refresh token rejected on access paths", func(t *testing.T) {
		token, err := issuer.IssueRefresh(active.ID)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, do("/me", token).Code)
	})

	t.Run("valid token loads user", func(t *testing.T) {
		token, err := issuer.IssueAccess(active.ID)
		require.NoError(t, err)
		w := do("/me", token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "active@example.com", w.Body.String())
	})

	t.Run("disabled account", func(t *testing.T) {
		token, err := issuer.IssueAccess(disabled.ID)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, do("/me", token).Code)
	})

	t.Run("insufficient role", func(t *testing.T) {
		token, err := issuer.IssueAccess(active.ID)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, do("/admin", token).Code)
	})
}
