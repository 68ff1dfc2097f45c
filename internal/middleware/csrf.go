package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CSRFCookie = "csrftoken"
	CSRFHeader = "X-CSRFToken"

	csrfMaxAge = 365 * 24 * 60 * 60
)

// IssueCSRF sets a fresh csrftoken cookie and echoes the token so that
// non-browser clients can send it back in the header.
func IssueCSRF(c *gin.Context) {
	token := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CSRFCookie, token, csrfMaxAge, "/", "", false, false)
	c.JSON(http.StatusOK, gin.H{"csrf_token": token})
}

// CSRF enforces the double-submit check on unsafe methods: the header
// token must equal the cookie token.
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		cookie, err := c.Cookie(CSRFCookie)
		header := c.GetHeader(CSRFHeader)
		if err != nil || cookie == "" || header == "" ||
			subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "CSRF verification failed"})
			return
		}
		c.Next()
	}
}
