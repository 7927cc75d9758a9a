package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
)

// UserIDHeader is set by the upstream gateway after it authenticates the
// caller. This service trusts it and carries no auth of its own.
const UserIDHeader = "X-User-ID"

const userIDKey = "rizzlab.user_id"

type IdentityMiddleware struct {
	log *logger.Logger
}

func NewIdentityMiddleware(log *logger.Logger) *IdentityMiddleware {
	return &IdentityMiddleware{log: log.With("middleware", "Identity")}
}

func (m *IdentityMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid user identity", "code": "unauthorized"},
			})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

// UserID reads the identity the middleware attached. uuid.Nil means the route
// skipped RequireUser.
func UserID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
