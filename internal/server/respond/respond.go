package respond

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable,omitempty"`
}

type ListResponse struct {
	Data     interface{} `json:"data"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

func List(c *gin.Context, data interface{}, total, page, pageSize int) {
	c.JSON(http.StatusOK, ListResponse{Data: data, Total: total, Page: page, PageSize: pageSize})
}

// Error writes err as {code, message}. Errors without a domain kind are logged and
// answered with a generic 500.
func Error(c *gin.Context, log logger.ZapLogger, err error) {
	status := apperror.HTTPStatus(err)
	resp := ErrorResponse{
		Code:      string(apperror.KindOf(err)),
		Message:   err.Error(),
		Retryable: apperror.IsRetryable(err),
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Details = appErr.Details
	}

	if status >= http.StatusInternalServerError {
		log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		resp.Message = "internal server error"
	}
	c.AbortWithStatusJSON(status, resp)
}

// BadRequest answers a malformed request body or parameter.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:    string(apperror.KindInvalidArgument),
		Message: message,
	})
}

// Page reads page and page_size query parameters. page_size is capped at 200.
func Page(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}
