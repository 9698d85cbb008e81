package handlers

import (
	"net/http"
	"strconv"

	"github.com/adstrategic/addinvoice/config"
	"github.com/adstrategic/addinvoice/utils"
	"github.com/gin-gonic/gin"
)

const moduleName = "handlers"

// respondError converts a model-layer error into the wire shape
// {"error": ..., "code": ...}. Internal errors are logged with the
// correlation id; their detail never reaches the client.
func respondError(c *gin.Context, funcName string, err error) {
	status := utils.HTTPStatus(err)
	code := utils.ErrorCode(err)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		correlationId, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(config.GetLogger(), moduleName, funcName, "request failed", correlationId, err)
		message = "internal error"
	}

	c.JSON(status, gin.H{"error": message, "code": string(code)})
}

// workspaceFromRequest reads the tenant set by the session middleware.
func workspaceFromRequest(c *gin.Context) (string, bool) {
	workspaceId, ok := utils.GetWorkspaceIdFromContext(c.Request.Context())
	if !ok || workspaceId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return workspaceId, true
}

func intParam(c *gin.Context, name string) (int, bool) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil || value < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "code": string(utils.ErrCodeValidation)})
		return 0, false
	}
	return value, true
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
