package middlewares

import (
	"net/http"

	"github.com/adstrategic/addinvoice/models"
	"github.com/adstrategic/addinvoice/utils"
	"github.com/gin-gonic/gin"
)

// BusinessRequired blocks everything except onboarding until the workspace
// has at least one business profile. The frontend uses the error code to
// route the user into setup.
func BusinessRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		workspaceId, ok := utils.GetWorkspaceIdFromContext(ctx)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		count, err := models.CountBusinesses(ctx, workspaceId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			c.Abort()
			return
		}
		if count == 0 {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "create a business profile first",
				"code":  string(utils.ErrCodeBusinessRequired),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// SubscriptionGate locks write methods when the workspace's subscription has
// lapsed. Reads stay available so a lapsed tenant can still see their data.
func SubscriptionGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		ctx := c.Request.Context()
		workspaceId, ok := utils.GetWorkspaceIdFromContext(ctx)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		status, err := models.GetWorkspaceSubscriptionStatus(ctx, workspaceId)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		if !status.WritesAllowed() {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "subscription required for this action",
				"code":  string(utils.ErrCodeSubscriptionRequired),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
