package back

import (
	"errors"
	"net/http"

	"SurfSense/pkg/xerr"
	"SurfSense/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构；HTTP 状态恒为 200，业务状态看 Code
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Result 统一返回入口：CodeError 原样透出，其余错误记录日志后返回系统错误
func Result(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}
	var e *xerr.CodeError
	if errors.As(err, &e) {
		Error(c, e.Code, e.Message)
		return
	}
	zlog.Error("unhandled request error", zap.String("path", c.FullPath()), zap.Error(err))
	Error(c, xerr.ErrServerError.Code, xerr.ErrServerError.Message)
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: xerr.OK, Message: "Success", Data: data})
}

// Accepted 已受理、异步处理中
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: xerr.Accepted, Message: "Accepted", Data: data})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{Code: code, Message: message})
}
