package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kritic-backend/internal/shared/server/middleware"
	"kritic-backend/internal/shared/server/respond"
)

type meResponse struct {
	UserID  string `json:"userId"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// registerMeRoutes attaches the /me endpoint: the caller's identity as the
// auth middleware resolved it.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", func(c *gin.Context) {
		userID := middleware.UserIDFromContext(c)
		if userID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		respond.JSON(c, http.StatusOK, meResponse{
			UserID:  userID,
			Email:   middleware.UserEmailFromContext(c),
			Name:    middleware.UserNameFromContext(c),
			Picture: middleware.UserPictureFromContext(c),
		})
	})
}
