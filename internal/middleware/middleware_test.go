package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/devcove/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Tokens
// =============================================================================

const (
	testSecret  = "0123456789abcdef0123456789abcdef"
	otherSecret = "fedcba9876543210fedcba9876543210"
)

func newTokens(t *testing.T, secret string) *Tokens {
	t.Helper()
	tokens, err := NewTokens(secret)
	require.NoError(t, err)
	return tokens
}

func TestNewTokens_RejectsWeakSecret(t *testing.T) {
	for _, secret := range []string{"", "short"} {
		_, err := NewTokens(secret)
		assert.ErrorIs(t, err, ErrWeakSecret, "secret %q", secret)
	}
}

func TestTokens_ZeroValueRejectsEmptyKeyForgery(t *testing.T) {
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(""))
	require.NoError(t, err)

	var zero Tokens
	_, err = zero.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = zero.Issue(&models.User{ID: 1})
	assert.ErrorIs(t, err, ErrWeakSecret)

	_, err = newTokens(t, testSecret).Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_IssueAndVerify(t *testing.T) {
	tokens := newTokens(t, testSecret)

	raw, err := tokens.Issue(&models.User{ID: 12, Username: "ana", Email: "ana@example.com"})
	require.NoError(t, err)

	id, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, 12, id)
}

func TestTokens_RejectsWrongSecret(t *testing.T) {
	raw, err := newTokens(t, testSecret).Issue(&models.User{ID: 1})
	require.NoError(t, err)

	_, err = newTokens(t, otherSecret).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_RejectsExpired(t *testing.T) {
	tokens := newTokens(t, testSecret)
	tokens.now = func() time.Time { return time.Now().Add(-2 * TokenTTL) }
	raw, err := tokens.Issue(&models.User{ID: 1})
	require.NoError(t, err)

	_, err = newTokens(t, testSecret).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// =============================================================================
// extractBearerToken
// =============================================================================

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"missing", "", ""},
		{"basic auth", "Basic abc123", ""},
		{"no scheme", "abc123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, extractBearerToken(c))
		})
	}
}

// =============================================================================
// AuthMiddleware / OptionalAuth
// =============================================================================

func newAuthRouter(tokens *Tokens, mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/me", mw, func(c *gin.Context) {
		id, ok := UserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tokens := newTokens(t, testSecret)
	raw, err := tokens.Issue(&models.User{ID: 5})
	require.NoError(t, err)
	r := newAuthRouter(tokens, AuthMiddleware(tokens))

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Session expired")
	})

	t.Run("valid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":5,"ok":true}`, w.Body.String())
	})
}

func TestOptionalAuth_AnonymousPassesThrough(t *testing.T) {
	tokens := newTokens(t, testSecret)
	r := newAuthRouter(tokens, OptionalAuth(tokens))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer stale")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":0,"ok":false}`, w.Body.String())
}

// =============================================================================
// CSRF
// =============================================================================

func newCSRFRouter() *gin.Engine {
	r := gin.New()
	r.GET("/csrf", IssueCSRF)
	r.Use(CSRF())
	r.GET("/read", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/write", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestIssueCSRF_SetsCookie(t *testing.T) {
	w := httptest.NewRecorder()
	newCSRFRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/csrf", nil))

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CSRFCookie, cookies[0].Name)
	assert.Contains(t, w.Body.String(), cookies[0].Value)
}

func TestCSRF(t *testing.T) {
	r := newCSRFRouter()

	tests := []struct {
		name   string
		method string
		path   string
		cookie string
		header string
		want   int
	}{
		{"safe method skips check", http.MethodGet, "/read", "", "", http.StatusOK},
		{"missing both", http.MethodPost, "/write", "", "", http.StatusForbidden},
		{"missing header", http.MethodPost, "/write", "tok", "", http.StatusForbidden},
		{"mismatch", http.MethodPost, "/write", "tok", "other", http.StatusForbidden},
		{"match", http.MethodPost, "/write", "tok", "tok", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CSRFCookie, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(CSRFHeader, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

// =============================================================================
// RateLimiter
// =============================================================================

func TestRateLimiter_BurstThenReject(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Now()
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"), "bucket refills")
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(time.Hour)
	rl.Allow("fresh")

	assert.Equal(t, 1, rl.Sweep(time.Minute))
	assert.Len(t, rl.visitors, 1)
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	rejected := 0
	r := gin.New()
	r.POST("/vote", func(c *gin.Context) { c.Set(ContextUserID, 9) }, rl.Middleware(func() { rejected++ }), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/vote", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/vote", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 1, rejected)
}
