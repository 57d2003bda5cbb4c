package utils

import "github.com/gin-gonic/gin"

// Envelope is the uniform response shape: {ok:true, data} on success and
// {ok:false, message} on failure.
type Envelope struct {
	OK      bool        `json:"ok"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// OK writes a success envelope with the given status code.
func OK(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, Envelope{OK: true, Data: data})
}

// Fail writes a failure envelope with the given status code.
func Fail(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, Envelope{OK: false, Message: message})
}
