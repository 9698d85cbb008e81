package handlers

import (
	"net/http"

	"github.com/adstrategic/addinvoice/models"
	"github.com/adstrategic/addinvoice/utils"
	"github.com/gin-gonic/gin"
)

func ListClientsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		clients, err := models.GetClients(c.Request.Context(), workspaceId)
		if err != nil {
			respondError(c, "ListClientsHandler", err)
			return
		}
		c.JSON(http.StatusOK, clients)
	}
}

func CreateClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		var input models.NewClient
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(utils.ErrCodeValidation)})
			return
		}
		client, err := models.CreateClient(c.Request.Context(), workspaceId, &input)
		if err != nil {
			respondError(c, "CreateClientHandler", err)
			return
		}
		c.JSON(http.StatusCreated, client)
	}
}

func GetClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		client, err := models.GetClient(c.Request.Context(), workspaceId, id)
		if err != nil {
			respondError(c, "GetClientHandler", err)
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

func UpdateClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		var input models.UpdateClientInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(utils.ErrCodeValidation)})
			return
		}
		client, err := models.UpdateClient(c.Request.Context(), workspaceId, id, &input)
		if err != nil {
			respondError(c, "UpdateClientHandler", err)
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

func DeleteClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceId, ok := workspaceFromRequest(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		if err := models.DeleteClient(c.Request.Context(), workspaceId, id); err != nil {
			respondError(c, "DeleteClientHandler", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
