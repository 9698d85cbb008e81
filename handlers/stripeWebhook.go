package handlers

import (
	"io"
	"net/http"

	"github.com/adstrategic/addinvoice/billing"
	"github.com/gin-gonic/gin"
)

// StripeWebhookHandler receives billing events. No session: authentication is
// the webhook signature. Processing errors other than a bad signature are
// answered 200 so Stripe does not hammer retries for events we chose to skip.
func StripeWebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, billing.MaxWebhookBodyBytes)
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusServiceUnavailable)
			return
		}

		event, err := billing.VerifyAndParseEvent(payload, c.Request.Header.Get("Stripe-Signature"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}

		if err := billing.ProcessEvent(c.Request.Context(), event); err != nil {
			respondError(c, "StripeWebhookHandler", err)
			return
		}
		c.Status(http.StatusOK)
	}
}
