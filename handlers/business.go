package handlers

import (
	"io"
	"net/http"

	"github.com/adstrategic/addinvoice/models"
	"github.com/adstrategic/addinvoice/utils"
	"github.com/gin-gonic/gin"
)

func ListBusinessesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		businesses, err := models.GetBusinesses(c.Request.Context(), workspaceId)
		if err != nil {
			respondError(c, "ListBusinessesHandler", err)
			return
		}
		c.JSON(http.StatusOK, businesses)
	}
}

func CreateBusinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		var input models.NewBusiness
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(utils.ErrCodeValidation)})
			return
		}
		business, err := models.CreateBusiness(c.Request.Context(), workspaceId, &input)
		if err != nil {
			respondError(c, "CreateBusinessHandler", err)
			return
		}
		c.JSON(http.StatusCreated, business)
	}
}

func GetBusinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		business, err := models.GetBusiness(c.Request.Context(), workspaceId, id)
		if err != nil {
			respondError(c, "GetBusinessHandler", err)
			return
		}
		c.JSON(http.StatusOK, business)
	}
}

func UpdateBusinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		var input models.UpdateBusinessInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(utils.ErrCodeValidation)})
			return
		}
		business, err := models.UpdateBusiness(c.Request.Context(), workspaceId, id, &input)
		if err != nil {
			respondError(c, "UpdateBusinessHandler", err)
			return
		}
		c.JSON(http.StatusOK, business)
	}
}

func DeleteBusinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		if err := models.DeleteBusiness(c.Request.Context(), workspaceId, id); err != nil {
			respondError(c, "DeleteBusinessHandler", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func SetDefaultBusinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		business, err := models.SetDefaultBusiness(c.Request.Context(), workspaceId, id)
		if err != nil {
			respondError(c, "SetDefaultBusinessHandler", err)
			return
		}
		c.JSON(http.StatusOK, business)
	}
}

// UploadBusinessLogoHandler takes a multipart "logo" file, resizes it and
// stores it in the bucket. The business row points at the public URL.
func UploadBusinessLogoHandler() gin.HandlerFunc {
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

		// Ownership check before touching the bucket.
		if _, err := models.GetBusiness(ctx, workspaceId, id); err != nil {
			respondError(c, "UploadBusinessLogoHandler", err)
			return
		}

		fileHeader, err := c.FormFile("logo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "logo file is required", "code": string(utils.ErrCodeValidation)})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, "UploadBusinessLogoHandler", err)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			respondError(c, "UploadBusinessLogoHandler", err)
			return
		}

		logoUrl, err := utils.ProcessAndUploadLogo(ctx, workspaceId, id, data)
		if err != nil {
			respondError(c, "UploadBusinessLogoHandler", err)
			return
		}

		business, err := models.UpdateBusinessLogo(ctx, workspaceId, id, logoUrl)
		if err != nil {
			respondError(c, "UploadBusinessLogoHandler", err)
			return
		}
		c.JSON(http.StatusOK, business)
	}
}
