package handlers

import (
	"net/http"

	"github.com/adstrategic/addinvoice/models"
	"github.com/adstrategic/addinvoice/renderer"
	"github.com/adstrategic/addinvoice/utils"
	"github.com/gin-gonic/gin"
)

func CreatePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		invoiceId, ok := intParam(c, "id")
		if !ok {
			return
		}
		var input models.NewPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(utils.ErrCodeValidation)})
			return
		}
		payment, err := models.CreatePayment(c.Request.Context(), workspaceId, invoiceId, &input)
		if err != nil {
			respondError(c, "CreatePaymentHandler", err)
			return
		}
		c.JSON(http.StatusCreated, payment)
	}
}

func UpdatePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		invoiceId, ok := intParam(c, "id")
		if !ok {
			return
		}
		paymentId, ok := intParam(c, "paymentId")
		if !ok {
			return
		}
		var input models.UpdatePaymentInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(utils.ErrCodeValidation)})
			return
		}
		payment, err := models.UpdatePayment(c.Request.Context(), workspaceId, invoiceId, paymentId, &input)
		if err != nil {
			respondError(c, "UpdatePaymentHandler", err)
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

func DeletePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		invoiceId, ok := intParam(c, "id")
		if !ok {
			return
		}
		paymentId, ok := intParam(c, "paymentId")
		if !ok {
			return
		}
		if err := models.DeletePayment(c.Request.Context(), workspaceId, invoiceId, paymentId); err != nil {
			respondError(c, "DeletePaymentHandler", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// PaymentReceiptHandler assembles the receipt document and delegates to the
// rendering service. Rendering is read-only; a renderer outage never touches
// the ledger.
func PaymentReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()

		payment, err := models.GetPayment(ctx, workspaceId, id)
		if err != nil {
			respondError(c, "PaymentReceiptHandler", err)
			return
		}
		invoice, err := models.GetInvoice(ctx, workspaceId, payment.InvoiceId)
		if err != nil {
			respondError(c, "PaymentReceiptHandler", err)
			return
		}
		business, err := models.GetBusiness(ctx, workspaceId, invoice.BusinessId)
		if err != nil {
			respondError(c, "PaymentReceiptHandler", err)
			return
		}
		client, err := models.GetClient(ctx, workspaceId, invoice.ClientId)
		if err != nil {
			respondError(c, "PaymentReceiptHandler", err)
			return
		}

		pdf, err := renderer.RenderReceipt(ctx, renderer.ReceiptDocument{
			Payment:  payment,
			Invoice:  invoice,
			Business: business,
			Client:   client,
		})
		if err != nil {
			respondError(c, "PaymentReceiptHandler", err)
			return
		}

		c.Header("Content-Disposition", `inline; filename="receipt.pdf"`)
		c.Data(http.StatusOK, "application/pdf", pdf)
	}
}
