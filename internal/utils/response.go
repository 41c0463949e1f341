package utils

import "github.com/gin-gonic/gin"

// SuccessResponse is the common success envelope returned by every handler.
func SuccessResponse(message string, data interface{}) gin.H {
	return gin.H{
		"success": true,
		"message": message,
		"data":    data,
	}
}

// ErrorResponse is the common error envelope. The message matches what the
// client displays; detail carries the underlying error text.
func ErrorResponse(message, detail string) gin.H {
	resp := gin.H{
		"success": false,
		"message": message,
	}
	if detail != "" {
		resp["error"] = detail
	}
	return resp
}
