package controllers

import (
	"net/http"

	apperrors "github.com/aihub/loganomaly/internal/errors"
	"github.com/beego/beego/v2/server/web"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	_ = c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError maps an AppError onto its HTTP status and a public message.
// Upstream details stay in the logs.
func (c *BaseController) JSONAppError(err error) {
	appErr := apperrors.GetAppError(err)

	switch {
	case appErr.Code == apperrors.ErrCodeBadRequest:
		c.JSONError(http.StatusBadRequest, appErr.Message)
	case appErr.Code == apperrors.ErrCodeBodyTooLarge:
		c.JSONError(http.StatusRequestEntityTooLarge, "request body too large")
	case apperrors.IsEmbeddingError(appErr):
		c.JSONError(http.StatusInternalServerError, "Failed to get embedding")
	case apperrors.IsVectorStoreError(appErr):
		c.JSONError(http.StatusInternalServerError, "Vector search failed")
	default:
		c.JSONError(http.StatusInternalServerError, "Internal server error")
	}
}
