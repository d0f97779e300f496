package server

import "github.com/gin-gonic/gin"

type successResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, successResponse{Success: true, Data: data})
}

func respondWithMessage(c *gin.Context, status int, data any, message string) {
	c.JSON(status, successResponse{Success: true, Data: data, Message: message})
}
