package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/rally-api/internal/config"
	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/pkg/jwthelper"
	"github.com/vietanh2810/rally-api/internal/service"
)

const testSigningKey = "test-signing-key"

type stubUsers struct {
	users map[uint]domain.User
	err   error
}

func (s *stubUsers) GetUser(_ context.Context, id uint) (domain.User, error) {
	if s.err != nil {
		return domain.User{}, s.err
	}
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, service.ErrUserNotFound
	}
	return user, nil
}

func newAPIConfig() *config.APIConfig {
	conf := &config.APIConfig{
		JWTSigningKey: testSigningKey,
		HomeURL:       "https://rally.test/",
	}
	conf.SetAdminEmail("admin@rally.test")
	conf.SetAllowedCORSDomains([]string{"https://rally.test"})
	return conf
}

func signedToken(t *testing.T, userID uint) string {
	t.Helper()
	token, err := jwthelper.GenerateToken([]byte(testSigningKey), userID, "")
	require.NoError(t, err)
	return token
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuthenticator_VerifyJWT(t *testing.T) {
	router := gin.New()
	router.GET("/me", NewAuthenticator(testSigningKey).VerifyJWT(), func(ctx *gin.Context) {
		id, _ := ctx.Get(ContextUserIDKey)
		ctx.JSON(http.StatusOK, gin.H{"id": id})
	})

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		wantCode int
	}{
		{
			name:     "no token",
			setup:    func(*http.Request) {},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "bearer token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signedToken(t, 7))
			},
			wantCode: http.StatusOK,
		},
		{
			name: "session cookie",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: SessionCookie, Value: signedToken(t, 7)})
			},
			wantCode: http.StatusOK,
		},
		{
			name: "wrong scheme",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Basic "+signedToken(t, 7))
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "other user agent",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signedToken(t, 7))
				r.Header.Set("User-Agent", "curl/8.0")
			},
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.JSONEq(t, `{"id":7}`, rec.Body.String())
			}
		})
	}
}

func TestAdminGate(t *testing.T) {
	users := map[uint]domain.User{
		1: {ID: 1, Email: "admin@rally.test"},
		2: {ID: 2, Email: "racer@rally.test"},
	}

	tests := []struct {
		name         string
		userID       uint
		lookupErr    error
		wantState    SessionState
		wantCode     int
		wantLocation string
	}{
		{name: "admin", userID: 1, wantState: SessionAdmin, wantCode: http.StatusOK},
		{name: "non admin", userID: 2, wantState: SessionNotAdmin, wantCode: http.StatusFound, wantLocation: "https://rally.test/"},
		{name: "unauthenticated", wantState: SessionNotAdmin, wantCode: http.StatusFound, wantLocation: "https://rally.test/"},
		{name: "deleted user", userID: 9, wantState: SessionNotAdmin, wantCode: http.StatusFound, wantLocation: "https://rally.test/"},
		{name: "lookup failure", userID: 1, lookupErr: errors.New("connection refused"), wantState: SessionUnknown, wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewAdminGate(newAPIConfig(), &stubUsers{users: users, err: tt.lookupErr})

			called := false
			router := gin.New()
			router.GET("/admin", gate.Require(), func(ctx *gin.Context) {
				called = true
				ctx.String(http.StatusOK, "dashboard")
			})

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.userID != 0 {
				req.Header.Set("Authorization", "Bearer "+signedToken(t, tt.userID))
			}

			state, _ := gate.Resolve(req)
			assert.Equal(t, tt.wantState, state)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantState == SessionAdmin, called)
			if tt.wantState != SessionAdmin {
				assert.Empty(t, rec.Body.String())
			}
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			}
			if tt.wantState == SessionUnknown {
				assert.Equal(t, adminRetryAfterSecs, rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestAdminGate_FollowsAdminEmailChanges(t *testing.T) {
	conf := newAPIConfig()
	gate := NewAdminGate(conf, &stubUsers{users: map[uint]domain.User{1: {ID: 1, Email: "admin@rally.test"}}})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, 1))

	state, user := gate.Resolve(req)
	assert.Equal(t, SessionAdmin, state)
	assert.Equal(t, uint(1), user.ID)

	conf.SetAdminEmail("someone-else@rally.test")
	state, _ = gate.Resolve(req)
	assert.Equal(t, SessionNotAdmin, state)

	conf.SetAdminEmail("")
	state, _ = gate.Resolve(req)
	assert.Equal(t, SessionNotAdmin, state)
}

func TestConfigCORS(t *testing.T) {
	conf := newAPIConfig()
	router := gin.New()
	router.Use(ConfigCORS(conf))
	router.POST("/payments/intent", func(ctx *gin.Context) {
		ctx.Status(http.StatusOK)
	})

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/payments/intent", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("https://rally.test")
	assert.Equal(t, "https://rally.test", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = preflight("https://evil.test")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	conf.SetAllowedCORSDomains([]string{"https://evil.test"})
	rec = preflight("https://evil.test")
	assert.Equal(t, "https://evil.test", rec.Header().Get("Access-Control-Allow-Origin"))
}
