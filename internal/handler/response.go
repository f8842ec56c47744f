package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// apiResponse is the envelope for the read and settings endpoints. The
// /api/cron endpoints answer in the scheduler-facing shape instead.
type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

// Error aborts the request. The message is also attached to the context so
// the access log carries it.
func Error(c *gin.Context, status int, message string, meta map[string]any) {
	_ = c.Error(errors.New(message)).SetType(gin.ErrorTypePublic)
	c.AbortWithStatusJSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}
