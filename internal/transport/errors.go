package transport

import (
	"fmt"
)

// 传输层错误定义
var (
	ErrSessionClosed   = NewTpError(1001, "Session is closed", "")
	ErrIncompleteFrame = NewTpError(1002, "Incomplete frame", "")
	ErrBadLength       = NewTpError(1003, "Bad frame length", "")
	ErrFrameTooLarge   = NewTpError(1004, "Frame too large", "")
)

type tpError struct {
	code    int
	msg     string
	context string
}

func (e *tpError) Error() string {
	if e.context != "" {
		return fmt.Sprintf("Error %d: %s (context: %s)", e.code, e.msg, e.context)
	}
	return fmt.Sprintf("Error %d: %s", e.code, e.msg)
}

// Is 按错误码比较，带 context 的实例同样匹配对应的哨兵错误
func (e *tpError) Is(target error) bool {
	t, ok := target.(*tpError)
	return ok && t.code == e.code
}

// Code 返回错误码
func (e *tpError) Code() int { return e.code }

func NewTpError(code int, message string, context string) *tpError {
	return &tpError{
		code:    code,
		msg:     message,
		context: context,
	}
}

func withContext(base *tpError, format string, args ...any) *tpError {
	return NewTpError(base.code, base.msg, fmt.Sprintf(format, args...))
}
