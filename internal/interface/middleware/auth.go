package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yudhapratama/contactbook/internal/application"
	"github.com/yudhapratama/contactbook/pkg/response"
)

// Context keys set by Auth for downstream handlers.
const (
	CtxUserIDKey    = "userID"
	CtxUserEmailKey = "userEmail"
	CtxUserNameKey  = "userName"
	CtxUserRoleKey  = "userRole"
)

// Auth resolves the current user from the access token (cookie first, then
// Authorization bearer) and injects identity fields into the Gin context.
func Auth(svc *application.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			response.AbortError(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		snap, err := svc.ResolveUser(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, application.ErrServiceUnavailable) {
				response.AbortError(c, http.StatusServiceUnavailable, "try again later", nil)
				return
			}
			response.AbortError(c, http.StatusUnauthorized, "invalid access token", nil)
			return
		}
		c.Set(CtxUserIDKey, snap.ID)
		c.Set(CtxUserEmailKey, snap.Email)
		c.Set(CtxUserNameKey, snap.Username)
		c.Set(CtxUserRoleKey, string(snap.Role))
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token
	}
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
