package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scooter/internal/redis"
)

// SubmitGuardTTL bounds how long a crashed request can hold a session's guard.
const SubmitGuardTTL = 30 * time.Second

// SubmitGuardMiddleware rejects a mutating request while another one from the
// same browser session is still being processed, on any gateway instance.
func SubmitGuardMiddleware(locks redis.LockStoreInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := BrowserSessionID(c)
		if locks == nil || id == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		acquired, err := locks.AcquireSessionLock(ctx, id, SubmitGuardTTL)
		if err != nil {
			// Redis error - proceed without the guard.
			c.Next()
			return
		}
		if !acquired {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request already in progress"})
			return
		}
		defer func() { _ = locks.ReleaseSessionLock(ctx, id) }()

		c.Next()
	}
}
