package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every API reply.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "success", Data: data})
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Code: code, Message: message})
}

// failWith reports an error that still carries a payload, such as the
// diagnostic of an infeasible paper.
func failWith(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Response{Code: code, Message: message, Data: data})
}
