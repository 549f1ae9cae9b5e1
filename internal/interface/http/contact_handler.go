package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yudhapratama/contactbook/internal/application"
	"github.com/yudhapratama/contactbook/internal/domain/entity"
	"github.com/yudhapratama/contactbook/internal/interface/middleware"
	"github.com/yudhapratama/contactbook/pkg/response"
	"github.com/yudhapratama/contactbook/pkg/validation"
)

type ContactHandler struct {
	Svc    *application.ContactService
	Logger *logrus.Logger
}

func NewContactHandler(svc *application.ContactService, logger *logrus.Logger) *ContactHandler {
	return &ContactHandler{Svc: svc, Logger: logger}
}

type contactRequest struct {
	FirstName string `json:"first_name" binding:"required,max=64"`
	LastName  string `json:"last_name" binding:"max=64"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"omitempty,max=32"`
	Birthday  string `json:"birthday" binding:"omitempty,datetime=2006-01-02"`
}

func (r *contactRequest) toInput() application.ContactInput {
	in := application.ContactInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
	}
	if r.Birthday != "" {
		in.Birthday, _ = time.Parse("2006-01-02", r.Birthday)
	}
	return in
}

func contactView(c *entity.Contact) gin.H {
	v := gin.H{
		"id":         c.ID,
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"email":      c.Email,
		"phone":      c.Phone,
		"created_at": c.CreatedAt,
		"updated_at": c.UpdatedAt,
	}
	if !c.Birthday.IsZero() {
		v["birthday"] = c.Birthday.Format("2006-01-02")
	}
	return v
}

func contactViews(contacts []*entity.Contact) []gin.H {
	out := make([]gin.H, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, contactView(c))
	}
	return out
}

func (h *ContactHandler) fail(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, application.ErrContactNotFound):
		response.Error[any](c, http.StatusNotFound, "contact not found", nil)
	case errors.Is(err, application.ErrServiceUnavailable):
		response.Error[any](c, http.StatusServiceUnavailable, "try again later", nil)
	default:
		h.Logger.WithError(err).Error(action + " failed")
		response.Error[any](c, http.StatusInternalServerError, action+" failed", nil)
	}
}

// Create POST /api/contacts
func (h *ContactHandler) Create(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusUnprocessableEntity, "invalid payload", validation.ToDetails(err))
		return
	}
	contact, err := h.Svc.Create(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), req.toInput())
	if err != nil {
		h.fail(c, err, "create contact")
		return
	}
	response.Success(c, http.StatusCreated, contactView(contact), "contact created", nil)
}

// List GET /api/contacts?q=
func (h *ContactHandler) List(c *gin.Context) {
	contacts, err := h.Svc.List(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), c.Query("q"))
	if err != nil {
		h.fail(c, err, "list contacts")
		return
	}
	response.Success(c, http.StatusOK, contactViews(contacts), "contacts", gin.H{"count": len(contacts)})
}

// Get GET /api/contacts/:id
func (h *ContactHandler) Get(c *gin.Context) {
	contact, err := h.Svc.Get(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), c.Param("id"))
	if err != nil {
		h.fail(c, err, "get contact")
		return
	}
	response.Success(c, http.StatusOK, contactView(contact), "contact", nil)
}

// Update PUT /api/contacts/:id
func (h *ContactHandler) Update(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusUnprocessableEntity, "invalid payload", validation.ToDetails(err))
		return
	}
	contact, err := h.Svc.Update(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), c.Param("id"), req.toInput())
	if err != nil {
		h.fail(c, err, "update contact")
		return
	}
	response.Success(c, http.StatusOK, contactView(contact), "contact updated", nil)
}

// Delete DELETE /api/contacts/:id
func (h *ContactHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), c.Param("id")); err != nil {
		h.fail(c, err, "delete contact")
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "contact deleted", nil)
}

// Birthdays GET /api/contacts/birthdays
func (h *ContactHandler) Birthdays(c *gin.Context) {
	contacts, err := h.Svc.UpcomingBirthdays(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		h.fail(c, err, "upcoming birthdays")
		return
	}
	response.Success(c, http.StatusOK, contactViews(contacts), "upcoming birthdays", gin.H{"count": len(contacts)})
}

// Search GET /api/contacts/search?q=
func (h *ContactHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "q is required", nil)
		return
	}
	hits, err := h.Svc.Search(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), q, 10)
	if err != nil {
		h.fail(c, err, "search contacts")
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", gin.H{"count": len(hits)})
}
