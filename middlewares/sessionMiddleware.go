package middlewares

import (
	"net/http"
	"strings"

	"github.com/adstrategic/addinvoice/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CorrelationMiddleware tags every request with a correlation id. Inbound
// X-Correlation-Id is honored so multi-service traces stay joined; otherwise
// a fresh uuid is minted. The id is echoed back on the response.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := strings.TrimSpace(c.Request.Header.Get("X-Correlation-Id"))
		if correlationId == "" {
			correlationId = uuid.NewString()
		}

		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set("X-Correlation-Id", correlationId)
		c.Next()
	}
}

// SessionMiddleware authenticates the bearer token and resolves the tenant.
// The workspace id comes from the token claims only; request bodies and query
// params never choose the tenant.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		const bearer = "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		raw := auth[len(bearer):]

		validated, err := utils.JwtValidate(raw)
		if err != nil || !validated.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claims, ok := validated.Claims.(*utils.JwtCustomClaim)
		if !ok || claims.WorkspaceId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), raw)
		ctx = utils.SetWorkspaceIdInContext(ctx, claims.WorkspaceId)
		ctx = utils.SetUserIdInContext(ctx, claims.UserId)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
