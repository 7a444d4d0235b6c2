package auth

import (
	"strings"

	"github.com/fekuna/omnipos-store-service/internal/apperror"
	"github.com/fekuna/omnipos-store-service/internal/httpx"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/gin-gonic/gin"
)

const ginUserKey = "auth.user"

// Authenticate requires a valid bearer token and stores the caller on both
// the gin context and the request context.
func Authenticate(v *Verifier, log logger.ZapLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			httpx.Error(c, log, apperror.New(apperror.KindUnauthorized, apperror.CodeUnauthorized, "Access token required"))
			return
		}

		user, err := v.Parse(token)
		if err != nil {
			httpx.Error(c, log, apperror.New(apperror.KindForbidden, apperror.CodeForbidden, "Invalid or expired token"))
			return
		}

		c.Set(ginUserKey, user)
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), user))
		c.Next()
	}
}

// Authorize lets the request through only for the listed roles.
func Authorize(log logger.ZapLogger, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			httpx.Error(c, log, apperror.New(apperror.KindUnauthorized, apperror.CodeUnauthorized, "Authentication required"))
			return
		}
		if !user.HasRole(roles...) {
			httpx.Error(c, log, apperror.New(apperror.KindForbidden, apperror.CodeForbidden, "Insufficient permissions"))
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*UserContext, bool) {
	v, ok := c.Get(ginUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*UserContext)
	return u, ok
}
