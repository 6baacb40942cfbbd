package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/billfold/billfold/internal/audit/domain"
	"github.com/billfold/billfold/internal/auditcontext"
	obscontext "github.com/billfold/billfold/internal/observability/context"
	"github.com/billfold/billfold/internal/usercontext"
)

// AuthRequired validates the bearer token and stashes the user id in both
// the gin context and the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := s.authSvc.VerifyToken(token)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userIDStr := strconv.FormatInt(userID, 10)
		c.Set(contextUserIDKey, userIDStr)

		ctx := usercontext.WithUserID(c.Request.Context(), userID)
		ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeUser), userIDStr)
		// The request logger reads the id back when it writes its line.
		ctx = obscontext.WithUserID(ctx, userIDStr)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// AuditContext captures request metadata for audit records before any
// handler runs.
func (s *Server) AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		if requestID := c.Writer.Header().Get("X-Request-Id"); requestID != "" {
			ctx = auditcontext.WithRequestID(ctx, requestID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
