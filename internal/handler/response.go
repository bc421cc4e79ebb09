package handler

import "github.com/gin-gonic/gin"

// Response is the envelope every handler returns.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes a success envelope with the given HTTP status.
func Success(c *gin.Context, code int, data interface{}) {
	c.JSON(code, Response{Status: "success", Data: data})
}

// Error writes an error envelope with the given HTTP status.
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Status: "error", Message: message})
}
