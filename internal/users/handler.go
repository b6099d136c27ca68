package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kritic-backend/internal/shared/server/middleware"
	"kritic-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
	rg.PATCH("/me", h.updateMe)
}

func (h *Handler) me(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	if rejectGuest(c) {
		return
	}
	userID := middleware.UserIDFromContext(c)
	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
		return
	}
	respond.JSON(c, http.StatusOK, userBody(user))
}

type updateMeRequest struct {
	FullName   string `json:"full_name"`
	PictureURL string `json:"picture_url"`
}

func (h *Handler) updateMe(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	if rejectGuest(c) {
		return
	}
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)
	user, err := h.Svc.UpdateProfile(c.Request.Context(), userID, req.FullName, req.PictureURL)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update user", nil)
		return
	}
	respond.JSON(c, http.StatusOK, userBody(user))
}

func userBody(user User) gin.H {
	return gin.H{
		"id":              user.ID,
		"email":           user.Email,
		"full_name":       user.FullName,
		"picture_url":     user.PictureURL,
		"credits_balance": user.CreditsBalance,
	}
}

func rejectGuest(c *gin.Context) bool {
	if isGuest, ok := c.Get("isGuest"); ok {
		if guest, ok2 := isGuest.(bool); ok2 && guest {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", nil)
			return true
		}
	}
	return false
}
