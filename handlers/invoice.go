package handlers

import (
	"net/http"
	"strings"

	"github.com/adstrategic/addinvoice/models"
	"github.com/adstrategic/addinvoice/utils"
	"github.com/gin-gonic/gin"
)

// ListInvoicesHandler serves the paginated invoice list plus workspace-wide
// aggregate stats. Query params: page, limit, search, status.
func ListInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}

		query := models.ListInvoicesQuery{
			Page:   intQuery(c, "page", 1),
			Limit:  intQuery(c, "limit", 20),
			Search: strings.TrimSpace(c.Query("search")),
		}
		if raw := strings.TrimSpace(c.Query("status")); raw != "" {
			status := models.InvoiceStatus(strings.ToUpper(raw))
			if !status.Storable() && status != models.InvoiceStatusOverdue {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter", "code": string(utils.ErrCodeValidation)})
				return
			}
			query.Status = status
		}

		list, err := models.ListInvoices(c.Request.Context(), workspaceId, query)
		if err != nil {
			respondError(c, "ListInvoicesHandler", err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func NextInvoiceNumberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		next, err := models.NextInvoiceNumber(c.Request.Context(), workspaceId)
		if err != nil {
			respondError(c, "NextInvoiceNumberHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"next_number": next})
	}
}

// GetInvoiceHandler reads by the workspace-facing invoice number, not the
// internal id.
func GetInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		sequence, ok := intParam(c, "sequence")
		if !ok {
			return
		}
		invoice, err := models.GetInvoiceBySequence(c.Request.Context(), workspaceId, sequence)
		if err != nil {
			respondError(c, "GetInvoiceHandler", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func CreateInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(utils.ErrCodeValidation)})
			return
		}
		invoice, err := models.CreateInvoice(c.Request.Context(), workspaceId, &input)
		if err != nil {
			respondError(c, "CreateInvoiceHandler", err)
			return
		}
		c.JSON(http.StatusCreated, invoice)
	}
}

func UpdateInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		var input models.UpdateInvoiceInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(utils.ErrCodeValidation)})
			return
		}
		invoice, err := models.UpdateInvoice(c.Request.Context(), workspaceId, id, &input)
		if err != nil {
			respondError(c, "UpdateInvoiceHandler", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func DeleteInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		if err := models.DeleteInvoice(c.Request.Context(), workspaceId, id); err != nil {
			respondError(c, "DeleteInvoiceHandler", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func SendInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		invoice, err := models.SendInvoice(c.Request.Context(), workspaceId, id)
		if err != nil {
			respondError(c, "SendInvoiceHandler", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func MarkInvoiceAsPaidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		invoice, err := models.MarkInvoiceAsPaid(c.Request.Context(), workspaceId, id)
		if err != nil {
			respondError(c, "MarkInvoiceAsPaidHandler", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func MarkInvoiceAsViewedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		invoice, err := models.MarkInvoiceAsViewed(c.Request.Context(), workspaceId, id)
		if err != nil {
			respondError(c, "MarkInvoiceAsViewedHandler", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}
