// Package httpx writes the JSON envelope every endpoint returns.
package httpx

import (
	"net/http"

	"github.com/fekuna/omnipos-store-service/internal/apperror"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Response struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Message string         `json:"message,omitempty"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type Page struct {
	Items      any        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

func NewPage(items any, page, pageSize, total int) Page {
	totalPages := 1
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return Page{
		Items:      items,
		Pagination: Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages},
	}
}

func JSON(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

func Message(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{Success: true, Data: data, Message: message})
}

// StatusOf maps an error kind onto an HTTP status.
func StatusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindStateInvariant:
		return http.StatusUnprocessableEntity
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error aborts the request with the envelope for err. Anything that is not a
// domain error is logged and reported with a generic message.
func Error(c *gin.Context, log logger.ZapLogger, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Internal("internal server error", err)
	}

	status := StatusOf(appErr.Kind)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}

// BindError reports a malformed request body or query.
func BindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   err.Error(),
		Code:    apperror.CodeInvalidInput,
	})
}

// NormalizePage applies defaults and caps to paging query parameters.
func NormalizePage(page, pageSize, defaultSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}
