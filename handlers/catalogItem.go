package handlers

import (
	"net/http"

	"github.com/adstrategic/addinvoice/models"
	"github.com/adstrategic/addinvoice/utils"
	"github.com/gin-gonic/gin"
)

func ListCatalogItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		items, err := models.GetCatalogItems(c.Request.Context(), workspaceId)
		if err != nil {
			respondError(c, "ListCatalogItemsHandler", err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func CreateCatalogItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		var input models.NewCatalogItem
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(utils.ErrCodeValidation)})
			return
		}
		item, err := models.CreateCatalogItem(c.Request.Context(), workspaceId, &input)
		if err != nil {
			respondError(c, "CreateCatalogItemHandler", err)
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

func GetCatalogItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		item, err := models.GetCatalogItem(c.Request.Context(), workspaceId, id)
		if err != nil {
			respondError(c, "GetCatalogItemHandler", err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func UpdateCatalogItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		var input models.UpdateCatalogItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(utils.ErrCodeValidation)})
			return
		}
		item, err := models.UpdateCatalogItem(c.Request.Context(), workspaceId, id, &input)
		if err != nil {
			respondError(c, "UpdateCatalogItemHandler", err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func DeleteCatalogItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		if err := models.DeleteCatalogItem(c.Request.Context(), workspaceId, id); err != nil {
			respondError(c, "DeleteCatalogItemHandler", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
