package protocol

import (
	"errors"
	"fmt"
)

// 线上 ERROR 消息的 code，属于协议契约
const (
	CodeServerBusy       = "SERVER_BUSY"
	CodeBadJSON          = "BAD_JSON"
	CodeInvalidHandshake = "INVALID_HANDSHAKE"
	CodeUsernameTaken    = "USERNAME_TAKEN"
	CodeInvalidUsername  = "INVALID_USERNAME"
	CodeInvalidMessage   = "INVALID_MESSAGE"
	CodeInvalidSender    = "INVALID_SENDER"
	CodeUnknownUser      = "UNKNOWN_USER"
	CodeNotAllowed       = "NOT_ALLOWED"
)

// 解析错误种类
var (
	ErrBadJSON        = errors.New("bad json")
	ErrMissingType    = errors.New("missing type")
	ErrUnknownType    = errors.New("unknown message type")
	ErrInvalidMessage = errors.New("invalid message")
)

// ParseError carries the failure kind and a detail suitable for an ERROR
// message sent back to the peer.
type ParseError struct {
	Kind   error
	Detail string
}

func (e *ParseError) Error() string { return e.Detail }
func (e *ParseError) Unwrap() error { return e.Kind }

// IsInvalid reports whether err came from parsing or validating a payload.
func IsInvalid(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func invalidf(format string, args ...any) error {
	return &ParseError{Kind: ErrInvalidMessage, Detail: fmt.Sprintf(format, args...)}
}
