package api

import (
	"github.com/gin-gonic/gin"
)

// envelope is the uniform response body: {status, data} on success and
// {status, error} on client errors.
type envelope struct {
	Status int    `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Status: status, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Status: status, Error: message})
}

func respondStatus(c *gin.Context, status int) {
	c.AbortWithStatusJSON(status, envelope{Status: status})
}
