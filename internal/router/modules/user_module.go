package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yudhapratama/contactbook/internal/application"
	"github.com/yudhapratama/contactbook/internal/container"
	"github.com/yudhapratama/contactbook/internal/domain/entity"
	handlers "github.com/yudhapratama/contactbook/internal/interface/http"
	"github.com/yudhapratama/contactbook/internal/interface/middleware"
)

// UserModule wires profile, avatar, logout, and admin routes.
// Protected: POST /api/logout, GET /api/me, PATCH /api/me/avatar
// Role-gated: GET /api/admin/users (moderator, admin)

type UserModule struct {
	Handler *handlers.UserHandler
	Auth    *application.AuthService
}

func NewUserModule(h *handlers.UserHandler, auth *application.AuthService) *UserModule {
	return &UserModule{Handler: h, Auth: auth}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	// Sensitive profile endpoints are throttled hard: one request per 20s per user.
	profileLimiter := middleware.RateLimit(container.GetRedis(), 1, 20*time.Second, middleware.KeyByUserID(), nil)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Auth))
	{
		auth.GET("/me", profileLimiter, m.Handler.Me)
		auth.PATCH("/me/avatar", profileLimiter, m.Handler.UpdateAvatar)
		auth.POST("/logout", m.Handler.Logout)
	}

	admin := rg.Group("/admin")
	admin.Use(middleware.Auth(m.Auth))
	admin.Use(middleware.RequireRoles(entity.RoleModerator, entity.RoleAdmin))
	{
		admin.GET("/users", m.Handler.ListUsers)
	}
}
