package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/seftec/platform/internal/observability/context"
	"github.com/seftec/platform/internal/usercontext"
)

const userIDHeader = "X-User-ID"

// UserRequired resolves the authenticated user from the gateway-injected
// header and stores it on the request context. Requests without a user are
// rejected before any handler runs.
func (s *Server) UserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(userIDHeader))
		if userID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := usercontext.WithUserID(c.Request.Context(), userID)
		ctx = obscontext.WithUserID(ctx, userID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// UserOptional is UserRequired without the rejection. Flag evaluation accepts
// anonymous callers and buckets them under a shared key.
func (s *Server) UserOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(userIDHeader))
		if userID != "" {
			ctx := usercontext.WithUserID(c.Request.Context(), userID)
			ctx = obscontext.WithUserID(ctx, userID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}

func requestUserID(c *gin.Context) string {
	userID, _ := usercontext.UserIDFromContext(c.Request.Context())
	return userID
}
