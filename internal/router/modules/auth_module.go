package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yudhapratama/contactbook/internal/application"
	"github.com/yudhapratama/contactbook/internal/container"
	handlers "github.com/yudhapratama/contactbook/internal/interface/http"
	"github.com/yudhapratama/contactbook/internal/interface/middleware"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
	Auth    *application.AuthService
}

func NewAuthModule(h *handlers.AuthHandler, auth *application.AuthService) *AuthModule {
	return &AuthModule{Handler: h, Auth: auth}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Public endpoints with IP-based rate limits; internal traffic is exempt
	internal := middleware.AllowPrivateIP()
	signupLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), internal)
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP(), internal)
	refreshLimiter := middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByIP(), internal)
	requestEmailLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), internal)

	rg.POST("/auth/signup", signupLimiter, m.Handler.Signup)
	rg.POST("/auth/login", loginLimiter, m.Handler.Login)
	rg.POST("/auth/refresh", refreshLimiter, m.Handler.Refresh)
	rg.GET("/auth/confirm/:token", m.Handler.ConfirmEmail)
	rg.POST("/auth/request-confirmation", requestEmailLimiter, m.Handler.RequestConfirmation)
	rg.GET("/auth/open/:username", m.Handler.Open)
}
