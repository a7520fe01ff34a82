package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionCookieName identifies the browser session. It has no Max-Age so
	// it ends with the browser session, like sessionStorage.
	SessionCookieName = "scooter_sid"

	browserSessionKey = "browserSessionID"
)

// BrowserSessionMiddleware reads the browser session cookie, minting a new
// session id when it is missing or malformed.
func BrowserSessionMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookieName)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.New().String()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookieName, id, 0, "/", "", secure, true)
		}

		c.Set(browserSessionKey, id)
		c.Next()
	}
}

// BrowserSessionID returns the browser session id set by BrowserSessionMiddleware.
func BrowserSessionID(c *gin.Context) string {
	return c.GetString(browserSessionKey)
}
