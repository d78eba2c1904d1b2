package handlers

import (
	"github.com/gin-gonic/gin"

	"sarvsaathi-server/internal/appointments"
	"sarvsaathi-server/internal/middleware"
	"sarvsaathi-server/internal/utils"
)

// userID returns the authenticated user, answering 401 when there is none.
func userID(c *gin.Context) (string, bool) {
	id, ok := middleware.GetUserIDFromContext(c)
	if !ok || id == "" {
		utils.Unauthorized(c, "User not authenticated")
		return "", false
	}
	return id, true
}

func actor(c *gin.Context) (appointments.Actor, bool) {
	id, ok := userID(c)
	if !ok {
		return appointments.Actor{}, false
	}
	role, _ := middleware.GetUserRoleFromContext(c)
	return appointments.Actor{UserID: id, Role: role}, true
}
