package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the data object of a successful reply.
type Response map[string]interface{}

// Business codes returned next to the HTTP status.
const (
	CodeOK           = 0
	CodeInvalidParam = 40001
	CodeAlreadyVoted = 40002
	CodeAuth         = 40101
	CodeCodeInvalid  = 40102
	CodeSession      = 40103
	CodeForbidden    = 40301
	CodeNotFound     = 40401
	CodeConflict     = 40901
	CodeServerErr    = 50001
	CodeDelivery     = 50201
)

// Success writes {code: 0, data}.
func Success(c *gin.Context, data Response) {
	c.JSON(http.StatusOK, gin.H{
		"code": CodeOK,
		"data": data,
	})
}

// Error writes {code, message} and aborts the chain.
func Error(c *gin.Context, httpStatus int, code int, msg string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
	})
}
