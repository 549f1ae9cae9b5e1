package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yudhapratama/contactbook/internal/application"
	"github.com/yudhapratama/contactbook/internal/container"
	handlers "github.com/yudhapratama/contactbook/internal/interface/http"
	"github.com/yudhapratama/contactbook/internal/interface/middleware"
)

type ContactModule struct {
	Handler *handlers.ContactHandler
	Auth    *application.AuthService
}

func NewContactModule(h *handlers.ContactHandler, auth *application.AuthService) *ContactModule {
	return &ContactModule{Handler: h, Auth: auth}
}

func (m *ContactModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/contacts")
	auth.Use(middleware.Auth(m.Auth))
	// A softer per-user limiter over the whole address book surface
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("", m.Handler.Create)
		auth.GET("", m.Handler.List)
		auth.GET("/birthdays", m.Handler.Birthdays)
		auth.GET("/search", m.Handler.Search)
		auth.GET("/:id", m.Handler.Get)
		auth.PUT("/:id", m.Handler.Update)
		auth.DELETE("/:id", m.Handler.Delete)
	}
}
