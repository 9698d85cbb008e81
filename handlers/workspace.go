package handlers

import (
	"net/http"

	"github.com/adstrategic/addinvoice/models"
	"github.com/gin-gonic/gin"
)

// GetWorkspaceHandler returns the caller's workspace, creating it on first
// authenticated access. This is the onboarding entry point and the only
// route exempt from the business gate.
func GetWorkspaceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}

		workspace, err := models.GetOrCreateWorkspace(c.Request.Context(), workspaceId, "")
		if err != nil {
			respondError(c, "GetWorkspaceHandler", err)
			return
		}
		c.JSON(http.StatusOK, workspace)
	}
}
