package client

import (
	"errors"
	"fmt"
)

var (
	ErrNoResponse         = errors.New("no response from server")
	ErrUnexpectedResponse = errors.New("unexpected handshake response")
	ErrClosed             = errors.New("client closed")
)

// RejectedError is returned by Dial when the server refuses the handshake,
// either with an ERROR frame or a non-OK CONNECT_ACK.
type RejectedError struct {
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("connection rejected: %s: %s", e.Code, e.Message)
}

// IsRejected 判断 err 是否为服务端拒绝
func IsRejected(err error) (*RejectedError, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
