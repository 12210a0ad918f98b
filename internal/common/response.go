// Package common holds the HTTP response envelope shared by all handlers.
package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OK writes the success envelope. code 0 always means success.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "ok",
		"data":    data,
	})
}

// Fail writes the error envelope. code is the application error code, not the
// HTTP status.
func Fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
		"data":    nil,
	})
}
