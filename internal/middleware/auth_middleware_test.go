package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tripadmin/internal/models"
	apperrors "tripadmin/pkg/errors"
	"tripadmin/pkg/jwt"
	"tripadmin/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[uint]*models.User

func (f fakeUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("User does not exist")
}

type fakeChecker struct {
	grants map[uint][]string
	err    error
	calls  int
}

func (f *fakeChecker) HasPermission(_ context.Context, userID uint, name string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	for _, g := range f.grants[userID] {
		if g == name {
			return true, nil
		}
	}
	return false, nil
}

type fakeRevocations map[string]bool

func (f fakeRevocations) Revoke(_ context.Context, jti string, _ time.Duration) error {
	f[jti] = true
	return nil
}

func (f fakeRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	return f[jti], nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func newGateRouter(m *AuthMiddleware, permission string) *gin.Engine {
	r := gin.New()
	r.GET("/resource", append(m.Protected(permission), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 200, "message": "ok"})
	})...)
	return r
}

func TestRequirePermission_Gate(t *testing.T) {
	manager := jwt.NewJWTManager("access-secret", "refresh-secret", time.Hour, 2*time.Hour)
	users := fakeUsers{
		1: {BaseModel: models.BaseModel{ID: 1}, Status: models.StatusActive},
		2: {BaseModel: models.BaseModel{ID: 2}, Status: models.StatusInactive},
	}
	checker := &fakeChecker{grants: map[uint][]string{1: {"hotels:read"}}}
	revoked := fakeRevocations{}
	m := NewAuthMiddleware(users, checker, manager, revoked)

	token := func(userID uint) string {
		pair, err := manager.GenerateTokenPair(userID, nil, "user@example.com")
		require.NoError(t, err)
		return "Bearer " + pair.AccessToken
	}

	tests := []struct {
		name       string
		permission string
		auth       string
		wantStatus int
		wantMsg    string
	}{
		{name: "granted", permission: "hotels:read", auth: token(1), wantStatus: http.StatusOK},
		{name: "not granted", permission: "hotels:delete", auth: token(1), wantStatus: http.StatusForbidden, wantMsg: "Access denied. Required permission: hotels:delete"},
		{name: "no permission required", permission: "", auth: token(1), wantStatus: http.StatusOK},
		{name: "missing header", permission: "hotels:read", auth: "", wantStatus: http.StatusUnauthorized},
		{name: "bad scheme", permission: "hotels:read", auth: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", permission: "hotels:read", auth: "Bearer abc", wantStatus: http.StatusUnauthorized},
		{name: "inactive user", permission: "hotels:read", auth: token(2), wantStatus: http.StatusUnauthorized},
		{name: "unknown user", permission: "hotels:read", auth: token(3), wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newGateRouter(m, tt.permission)
			req := httptest.NewRequest(http.MethodGet, "/resource", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.wantStatus, body.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body.Message)
			}
		})
	}
}

func TestRequirePermission_RefreshTokenRejected(t *testing.T) {
	manager := jwt.NewJWTManager("access-secret", "refresh-secret", time.Hour, 2*time.Hour)
	users := fakeUsers{1: {BaseModel: models.BaseModel{ID: 1}, Status: models.StatusActive}}
	m := NewAuthMiddleware(users, &fakeChecker{}, manager, nil)

	pair, err := manager.GenerateTokenPair(1, nil, "user@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	w := httptest.NewRecorder()
	newGateRouter(m, "").ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePermission_RevokedToken(t *testing.T) {
	manager := jwt.NewJWTManager("access-secret", "refresh-secret", time.Hour, 2*time.Hour)
	users := fakeUsers{1: {BaseModel: models.BaseModel{ID: 1}, Status: models.StatusActive}}
	revoked := fakeRevocations{}
	m := NewAuthMiddleware(users, &fakeChecker{}, manager, revoked)

	pair, err := manager.GenerateTokenPair(1, nil, "user@example.com")
	require.NoError(t, err)
	claims, err := manager.VerifyToken(pair.AccessToken)
	require.NoError(t, err)
	require.NoError(t, revoked.Revoke(context.Background(), claims.ID, time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	newGateRouter(m, "").ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token has been revoked", decode(t, w).Message)
}

func TestRequirePermission_WithoutLogin(t *testing.T) {
	checker := &fakeChecker{}
	m := NewAuthMiddleware(fakeUsers{}, checker, nil, nil)

	r := gin.New()
	r.GET("/resource", m.RequirePermission("hotels:read"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, checker.calls)
}

func TestRequirePermission_CheckerError(t *testing.T) {
	checker := &fakeChecker{err: errors.New("db down")}
	m := NewAuthMiddleware(fakeUsers{}, checker, nil, nil)

	r := gin.New()
	r.GET("/resource", func(c *gin.Context) {
		c.Set(ContextUserID, uint(1))
		c.Next()
	}, m.RequirePermission("hotels:read"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w).Message)
}

func TestRequirePermission_DenialLoggedAtWarn(t *testing.T) {
	captured, hook := logtest.NewNullLogger()
	previous := logger.Logger
	logger.Logger = captured
	t.Cleanup(func() { logger.Logger = previous })

	checker := &fakeChecker{grants: map[uint][]string{7: {"hotels:read"}}}
	m := NewAuthMiddleware(fakeUsers{}, checker, nil, nil)

	r := gin.New()
	r.GET("/resource", func(c *gin.Context) {
		c.Set(ContextUserID, uint(7))
		c.Next()
	}, m.RequirePermission("hotels:delete"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource", nil))

	require.Equal(t, http.StatusForbidden, w.Code)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Permission denied", entry.Message)
	assert.Equal(t, uint(7), entry.Data["user_id"])
	assert.Equal(t, "hotels:delete", entry.Data["permission"])
}

func TestRequirePermission_ChecksEveryRequest(t *testing.T) {
	checker := &fakeChecker{grants: map[uint][]string{1: {"hotels:read"}}}
	m := NewAuthMiddleware(fakeUsers{}, checker, nil, nil)

	r := gin.New()
	r.GET("/resource", func(c *gin.Context) {
		c.Set(ContextUserID, uint(1))
		c.Next()
	}, m.RequirePermission("hotels:read"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	checker.grants[1] = nil
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 2, checker.calls)
}

func TestErrorHandler_RecoversPanic(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 500, decode(t, w).Code)
}
