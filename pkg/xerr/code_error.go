package xerr

import "fmt"

// CodeError 业务错误：Code 写入响应 envelope，Cause 仅用于日志与 errors.Is
type CodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *CodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Code: %d, Message: %s, Cause: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

func (e *CodeError) Unwrap() error { return e.Cause }

func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Message: msg}
}

// Wrap 保留底层错误，调用方仍可用 errors.Is 判断
func Wrap(code int, msg string, cause error) *CodeError {
	return &CodeError{Code: code, Message: msg, Cause: cause}
}

const (
	OK                  = 200
	Accepted            = 202
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
	ServiceUnavailable  = 503
)

var (
	ErrSuccess          = New(OK, "Success")
	ErrServerError      = New(InternalServerError, "系统错误，请联系工作人员")
	ErrParam            = New(BadRequest, "参数错误")
	ErrDocumentNotFound = New(NotFound, "文档不存在")
	ErrQueueDisabled    = New(ServiceUnavailable, "索引队列未启用")
	ErrSearchDisabled   = New(ServiceUnavailable, "向量检索未启用")
)
