package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yudhapratama/contactbook/internal/application"
	"github.com/yudhapratama/contactbook/pkg/helpers"
	"github.com/yudhapratama/contactbook/pkg/response"
	"github.com/yudhapratama/contactbook/pkg/validation"
)

// openPixel is the fixed 1x1 transparent PNG served by the open-tracking stub.
var openPixel, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

type AuthHandler struct {
	Svc     *application.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Username string `json:"username" binding:"required,min=2,max=64"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type requestEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Signup POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusUnprocessableEntity, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.Signup(c.Request.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrConflict):
			response.Error[any](c, http.StatusConflict, "user with this email already exists", nil)
		case errors.Is(err, application.ErrServiceUnavailable):
			response.Error[any](c, http.StatusServiceUnavailable, "try again later", nil)
		default:
			h.Logger.WithError(err).Error("signup failed")
			response.Error[any](c, http.StatusInternalServerError, "signup failed", nil)
		}
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"id":        u.ID,
		"email":     u.Email,
		"username":  u.Username,
		"confirmed": u.Confirmed,
		"role":      u.Role,
	}, "check your email for confirmation", nil)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrUnauthorized):
			response.Error[any](c, http.StatusUnauthorized, "incorrect email or password", nil)
		case errors.Is(err, application.ErrServiceUnavailable):
			response.Error[any](c, http.StatusServiceUnavailable, "try again later", nil)
		default:
			h.Logger.WithError(err).WithField("email", req.Email).Error("login failed")
			response.Error[any](c, http.StatusInternalServerError, "login failed", nil)
		}
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "bearer",
	}, "login successful", gin.H{
		"access_expires_at":  pair.AccessTokenExpiry,
		"refresh_expires_at": pair.RefreshTokenExpiry,
	})
}

// Refresh POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh := refreshFromRequest(c)
	if refresh == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		if errors.Is(err, application.ErrServiceUnavailable) {
			response.Error[any](c, http.StatusServiceUnavailable, "try again later", nil)
			return
		}
		response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "bearer",
	}, "token refreshed", gin.H{
		"access_expires_at":  pair.AccessTokenExpiry,
		"refresh_expires_at": pair.RefreshTokenExpiry,
	})
}

// ConfirmEmail GET /api/auth/confirm/:token
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	already, err := h.Svc.ConfirmEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, application.ErrServiceUnavailable) {
			response.Error[any](c, http.StatusServiceUnavailable, "try again later", nil)
			return
		}
		response.Error[any](c, http.StatusBadRequest, "verification error", nil)
		return
	}
	if already {
		response.Success[any](c, http.StatusOK, nil, "your email is already confirmed", nil)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "email confirmed", nil)
}

// RequestConfirmation POST /api/auth/request-confirmation
// The response is identical whether or not the address is registered.
func (h *AuthHandler) RequestConfirmation(c *gin.Context) {
	var req requestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if _, err := h.Svc.RequestConfirmation(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, application.ErrServiceUnavailable) {
			response.Error[any](c, http.StatusServiceUnavailable, "try again later", nil)
			return
		}
		h.Logger.WithError(err).Error("request confirmation failed")
		response.Error[any](c, http.StatusInternalServerError, "request failed", nil)
		return
	}
	// same message for confirmed, unconfirmed, and unknown addresses
	response.Success[any](c, http.StatusOK, nil, "check your email for confirmation", nil)
}

// Open GET /api/auth/open/:username
// Open-tracking stub: always serves the same pixel, records nothing.
func (h *AuthHandler) Open(c *gin.Context) {
	c.Data(http.StatusOK, "image/png", openPixel)
}

func refreshFromRequest(c *gin.Context) string {
	if token, err := c.Cookie("refresh_token"); err == nil && token != "" {
		return token
	}
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
