package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkshare-api/services"
	"sparkshare-api/utils"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": "u1",
		"email":   " Alice@Example.com ",
		"name":    "Alice",
		"picture": "https://example.com/a.png",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

type recordingSyncer struct {
	calls int
	err   error
}

func (s *recordingSyncer) EnsureProfile(ctx context.Context) error {
	s.calls++
	return s.err
}

func newAuthEngine(syncer ProfileSyncer) *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(testSecret, syncer, utils.DiscardLogger()))
	r.GET("/me", func(c *gin.Context) {
		me := services.ContextIdentity{}.CurrentUser(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"uid":      me.UID,
			"email":    me.Email,
			"ctx_user": c.GetString(UserIDKey),
		})
	})
	return r
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	syncer := &recordingSyncer{}
	r := newAuthEngine(syncer)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"u1","email":"alice@example.com","ctx_user":"u1"}`, w.Body.String())
	assert.Equal(t, 1, syncer.calls)
}

func TestAuthMiddlewareProfileSyncFailureDoesNotBlock(t *testing.T) {
	r := newAuthEngine(&recordingSyncer{err: errors.New("store down")})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noExpiry := validClaims()
	delete(noExpiry, "exp")
	noEmail := validClaims()
	delete(noEmail, "email")

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage", "Bearer not-a-token"},
		{"wrong secret", "Bearer " + signToken(t, "other", validClaims())},
		{"expired", "Bearer " + signToken(t, testSecret, expired)},
		{"no expiry", "Bearer " + signToken(t, testSecret, noExpiry)},
		{"no email", "Bearer " + signToken(t, testSecret, noEmail)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := &recordingSyncer{}
			r := newAuthEngine(syncer)

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Zero(t, syncer.calls)
		})
	}
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := validClaims()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Error(t, err)
}

func TestRateLimitKeysByUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(UserIDKey, c.GetHeader("X-User"))
		c.Next()
	})
	r.Use(RateLimit(ctx, 60, 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("u1"))
	assert.Equal(t, http.StatusOK, call("u1"))
	assert.Equal(t, http.StatusTooManyRequests, call("u1"))
	assert.Equal(t, http.StatusOK, call("u2"))
}

func TestTimeoutSetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(time.Second))
	r.GET("/", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterSweepEvictsIdleCallers(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 1)
	rl.now = func() time.Time { return now }

	allowed, _ := rl.Allow("u1")
	require.True(t, allowed)
	allowed, remaining := rl.Allow("u1")
	assert.False(t, allowed)
	assert.Zero(t, remaining)

	now = now.Add(5 * time.Minute)
	rl.Allow("u2")
	now = now.Add(6 * time.Minute)
	rl.Sweep()

	assert.NotContains(t, rl.callers, "u1")
	assert.Contains(t, rl.callers, "u2")
}

func TestValidateJSON(t *testing.T) {
	r := gin.New()
	r.Use(ValidateJSON())
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name        string
		body        string
		contentType string
		want        int
	}{
		{"empty body", "", "", http.StatusOK},
		{"json", `{"a":1}`, "application/json; charset=utf-8", http.StatusOK},
		{"form", "a=1", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
