package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yudhapratama/contactbook/internal/application"
	"github.com/yudhapratama/contactbook/internal/domain/entity"
	"github.com/yudhapratama/contactbook/internal/interface/middleware"
	"github.com/yudhapratama/contactbook/pkg/helpers"
	"github.com/yudhapratama/contactbook/pkg/response"
)

type UserHandler struct {
	Svc     *application.UserService
	Auth    *application.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewUserHandler(svc *application.UserService, auth *application.AuthService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *UserHandler {
	return &UserHandler{Svc: svc, Auth: auth, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

func userView(u *entity.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"email":      u.Email,
		"username":   u.Username,
		"confirmed":  u.Confirmed,
		"avatar_url": u.AvatarURL,
		"role":       u.Role,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
}

// Me GET /api/me
func (h *UserHandler) Me(c *gin.Context) {
	email := c.GetString(middleware.CtxUserEmailKey)
	u, err := h.Svc.GetByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, application.ErrServiceUnavailable) {
			response.Error[any](c, http.StatusServiceUnavailable, "try again later", nil)
			return
		}
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, userView(u), "profile", nil)
}

// UpdateAvatar PATCH /api/me/avatar
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	email := c.GetString(middleware.CtxUserEmailKey)

	fh, err := c.FormFile("file")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "missing file", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "unreadable file", nil)
		return
	}
	defer func() { _ = f.Close() }()

	u, err := h.Svc.UploadAvatar(c.Request.Context(), email, f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, application.ErrUserNotFound):
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
		case errors.Is(err, application.ErrServiceUnavailable):
			response.Error[any](c, http.StatusServiceUnavailable, "try again later", nil)
		default:
			h.Logger.WithError(err).WithField("email", email).Error("avatar upload failed")
			response.Error[any](c, http.StatusInternalServerError, "avatar upload failed", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, userView(u), "avatar updated", nil)
}

// Logout POST /api/logout
func (h *UserHandler) Logout(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	email := c.GetString(middleware.CtxUserEmailKey)
	if err := h.Auth.Logout(c.Request.Context(), uid, email); err != nil {
		response.Error[any](c, http.StatusServiceUnavailable, "try again later", nil)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

// ListUsers GET /api/admin/users (moderator/admin only)
func (h *UserHandler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	users, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		if errors.Is(err, application.ErrServiceUnavailable) {
			response.Error[any](c, http.StatusServiceUnavailable, "try again later", nil)
			return
		}
		h.Logger.WithError(err).Error("list users failed")
		response.Error[any](c, http.StatusInternalServerError, "list users failed", nil)
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, userView(u))
	}
	response.Success(c, http.StatusOK, out, "users", gin.H{"limit": limit, "offset": offset})
}
