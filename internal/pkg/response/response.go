package response

import "github.com/gin-gonic/gin"

// Every endpoint answers with the same envelope: {success, data} on the happy
// path, {success, error:{code, message}} otherwise.

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
