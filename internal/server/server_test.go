package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/devcove/internal/config"
	"github.com/emilythestrangee/devcove/internal/middleware"
	"github.com/emilythestrangee/devcove/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDB struct {
	status string
}

func (f fakeDB) Health() map[string]string { return map[string]string{"status": f.status} }
func (fakeDB) Close() error                { return nil }
func (fakeDB) GetDB() *gorm.DB             { return nil }

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T, status string) (*Server, *gin.Engine) {
	t.Helper()
	s, err := New(config.ServerConfig{
		Port:      8080,
		JWTSecret: testSecret,
		VoteRate:  0.001,
		VoteBurst: 2,
	}, Deps{DB: fakeDB{status: status}})
	require.NoError(t, err)
	return s, s.RegisterRoutes()
}

func TestNewRefusesWeakSecret(t *testing.T) {
	for _, secret := range []string{"", "test-secret"} {
		_, err := New(config.ServerConfig{Port: 8080, JWTSecret: secret}, Deps{DB: fakeDB{status: "up"}})
		assert.Error(t, err, "secret %q", secret)
	}
}

func TestHealth(t *testing.T) {
	_, r := newTestServer(t, "up")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"up"`)

	_, r = newTestServer(t, "down")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, r := newTestServer(t, "up")
	s.metrics.ObserveVote("post", "applied")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "devcove_votes_mutations_total")
}

func TestHTTPServer_Addr(t *testing.T) {
	s, _ := newTestServer(t, "up")
	assert.Equal(t, "0.0.0.0:8080", s.HTTPServer().Addr)
}

// csrfPair fetches a token the way a browser would.
func csrfPair(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf", nil))
	require.Equal(t, http.StatusOK, w.Code)
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.CSRFCookie {
			return c.Value
		}
	}
	t.Fatal("no csrf cookie issued")
	return ""
}

func voteRequest(token, csrf string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/vote", strings.NewReader(`{"direction":"sideways"}`))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set(middleware.CSRFHeader, csrf)
		req.AddCookie(&http.Cookie{Name: middleware.CSRFCookie, Value: csrf})
	}
	return req
}

func TestVoteRoute_Guards(t *testing.T) {
	s, r := newTestServer(t, "up")
	token, err := s.tokens.Issue(&models.User{ID: 3, Username: "bob"})
	require.NoError(t, err)
	csrf := csrfPair(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, voteRequest("", csrf))
	assert.Equal(t, http.StatusUnauthorized, w.Code, "no token")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, voteRequest(token, ""))
	assert.Equal(t, http.StatusForbidden, w.Code, "no csrf")

	// malformed bodies reach the handler until the bucket runs dry
	for i := 0; i < 2; i++ {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, voteRequest(token, csrf))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, voteRequest(token, csrf))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
