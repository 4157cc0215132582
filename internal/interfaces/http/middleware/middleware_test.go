package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/auth"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/logger"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type revokedSet map[string]bool

func (r revokedSet) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return r[tokenID], nil
}

func perform(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testutil.Config()
	jwt := auth.NewJWTManager(cfg)
	revoked := revokedSet{}

	engine := gin.New()
	engine.Use(AuthMiddleware(cfg, revoked, logger.Discard()))
	engine.GET("/me", func(c *gin.Context) {
		session, ok := SessionFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": session.UserID, "email": session.Email})
	})
	engine.GET("/admin", AdminMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, perform(engine, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, perform(engine, req).Code)

	refresh, err := jwt.GenerateRefreshToken(7, "sam@example.com")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	assert.Equal(t, http.StatusUnauthorized, perform(engine, req).Code)

	token, err := jwt.GenerateAccessToken(7, "sam@example.com", false)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := perform(engine, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"email":"sam@example.com"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, perform(engine, req).Code)

	claims, err := jwt.ValidateAccessToken(token)
	require.NoError(t, err)
	revoked[claims.ID] = true
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, perform(engine, req).Code)

	adminToken, err := jwt.GenerateAccessToken(1, "admin@farmbox.local", true)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, perform(engine, req).Code)
}

func TestRequestIDAndLogger(t *testing.T) {
	log, hook := test.NewNullLogger()

	engine := gin.New()
	engine.Use(Logger(log), RequestID())
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	engine.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := perform(engine, httptest.NewRequest(http.MethodGet, "/ping", nil))
	id := w.Header().Get("X-Request-ID")
	assert.Len(t, id, 36)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, id, entry.Data["request_id"])
	assert.Equal(t, "/ping", entry.Data["path"])

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("X-Request-ID", "caller-id")
	w = perform(engine, req)
	assert.Equal(t, "caller-id", w.Header().Get("X-Request-ID"))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestRequestSizeLimit(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestSizeLimit(16))
	engine.POST("/echo", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.String(http.StatusOK, string(body))
	})

	w := perform(engine, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(engine, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testutil.Config()
	cfg.Security.RateLimitPerMinute = 2
	rdb, _ := testutil.NewRedis(t)

	engine := gin.New()
	engine.Use(RateLimit(cfg, rdb, logger.Discard()))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(engine, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, perform(engine, httptest.NewRequest(http.MethodGet, "/ping", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, perform(engine, httptest.NewRequest(http.MethodGet, "/ping", nil)).Code)
}

func TestCORS(t *testing.T) {
	cfg := testutil.Config()
	cfg.Security.CORSAllowedOrigins = []string{"https://shop.example.com", "*.farm.test"}

	engine := gin.New()
	engine.Use(CORS(cfg))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://admin.farm.test")
	w := perform(engine, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.farm.test", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.org")
	w = perform(engine, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
