package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/emilythestrangee/devcove/internal/models"
)

// ContextUserID is the gin context key holding the authenticated user id.
const ContextUserID = "user_id"

// TokenTTL is how long an issued session token stays valid.
const TokenTTL = 72 * time.Hour

// MinSecretLength is the shortest HS256 signing secret accepted.
const MinSecretLength = 32

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWeakSecret   = fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
)

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string) (*Tokens, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &Tokens{secret: []byte(secret), ttl: TokenTTL, now: time.Now}, nil
}

// Issue signs a token for user.
func (t *Tokens) Issue(user *models.User) (string, error) {
	if len(t.secret) == 0 {
		return "", ErrWeakSecret
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"email":    user.Email,
		"exp":      t.now().Add(t.ttl).Unix(),
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify returns the user id carried by a valid token.
func (t *Tokens) Verify(raw string) (int, error) {
	if len(t.secret) == 0 {
		return 0, ErrInvalidToken
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	id, ok := claims["user_id"].(float64)
	if !ok || id <= 0 {
		return 0, ErrInvalidToken
	}
	return int(id), nil
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractBearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		userID, err := tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired, please log in again"})
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// OptionalAuth records the user when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := extractBearerToken(c); raw != "" {
			if userID, err := tokens.Verify(raw); err == nil {
				c.Set(ContextUserID, userID)
			}
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, if any.
func UserID(c *gin.Context) (int, bool) {
	raw, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case uint:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
