package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yudhapratama/contactbook/internal/domain/entity"
	"github.com/yudhapratama/contactbook/pkg/response"
)

// RequireRoles passes only when the already-resolved user's role is in the
// allowed set. Must run after Auth.
func RequireRoles(allowed ...entity.Role) gin.HandlerFunc {
	set := make(map[entity.Role]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := entity.Role(c.GetString(CtxUserRoleKey))
		if _, ok := set[role]; !ok {
			response.AbortError(c, http.StatusForbidden, "insufficient role", nil)
			return
		}
		c.Next()
	}
}
