package utils

import "github.com/gin-gonic/gin"

// SuccessResponse is the standard success envelope for JSON handlers.
func SuccessResponse(message string, data interface{}) gin.H {
	return gin.H{
		"success": true,
		"message": message,
		"data":    data,
	}
}

// ErrorResponse is the standard error envelope for JSON handlers.
func ErrorResponse(message, detail string) gin.H {
	return gin.H{
		"success": false,
		"message": message,
		"error":   detail,
	}
}
