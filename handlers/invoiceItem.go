package handlers

import (
	"net/http"

	"github.com/adstrategic/addinvoice/models"
	"github.com/adstrategic/addinvoice/utils"
	"github.com/gin-gonic/gin"
)

func CreateInvoiceItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		invoiceId, ok := intParam(c, "id")
		if !ok {
			return
		}
		var input models.NewInvoiceItem
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(utils.ErrCodeValidation)})
			return
		}
		item, err := models.CreateInvoiceItem(c.Request.Context(), workspaceId, invoiceId, &input)
		if err != nil {
			respondError(c, "CreateInvoiceItemHandler", err)
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

func UpdateInvoiceItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		invoiceId, ok := intParam(c, "id")
		if !ok {
			return
		}
		itemId, ok := intParam(c, "itemId")
		if !ok {
			return
		}
		var input models.UpdateInvoiceItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(utils.ErrCodeValidation)})
			return
		}
		item, err := models.UpdateInvoiceItem(c.Request.Context(), workspaceId, invoiceId, itemId, &input)
		if err != nil {
			respondError(c, "UpdateInvoiceItemHandler", err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func DeleteInvoiceItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		invoiceId, ok := intParam(c, "id")
		if !ok {
			return
		}
		itemId, ok := intParam(c, "itemId")
		if !ok {
			return
		}
		if err := models.DeleteInvoiceItem(c.Request.Context(), workspaceId, invoiceId, itemId); err != nil {
			respondError(c, "DeleteInvoiceItemHandler", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
