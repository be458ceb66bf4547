package response

import (
	"net/http"

	"tripadmin/pkg/errors"
	"tripadmin/pkg/logger"
	"tripadmin/pkg/pagination"

	"github.com/gin-gonic/gin"
)

// Response unified envelope
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse list envelope
type PageResponse struct {
	Code     int                  `json:"code"`
	Message  string               `json:"message"`
	Data     interface{}          `json:"data"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

// ========== Success ==========

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errors.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errors.CodeSuccess,
		Message: message,
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    errors.CodeSuccess,
		Message: "created",
		Data:    data,
	})
}

func SuccessWithPage(c *gin.Context, data interface{}, pageInfo *pagination.PageInfo) {
	c.JSON(http.StatusOK, PageResponse{
		Code:     errors.CodeSuccess,
		Message:  "success",
		Data:     data,
		PageInfo: pageInfo,
	})
}

// Error writes an error envelope with the HTTP status matching code
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// ========== Error shortcuts ==========

func BadRequest(c *gin.Context, message string) {
	Error(c, errors.CodeInvalidParam, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, errors.CodeUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, errors.CodeForbidden, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, errors.CodeNotFound, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, errors.CodeConflict, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, errors.CodeServerError, message)
}

// HandleError maps a service error to its envelope. Anything that is not an AppError is logged
// and reported as a generic 500.
func HandleError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeServerError {
		logger.GetLogger().WithError(err).WithField("path", c.FullPath()).Error("request failed")
		ServerError(c, "Internal server error")
		return
	}
	Error(c, code, errors.GetMessage(err))
}
