package transport

import (
	"context"
)

const (
	Tcp       = "tcp"
	WebSocket = "websocket"
)

// Conn 帧级连接：一次读/写对应一个 SCP 负载
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(payload []byte) error
	RemoteAddr() string
	Transport() string
	Close() error
}

// Gateway receives every accepted connection. Admit is called from the
// accepting goroutine and decides whether the connection gets a session.
type Gateway interface {
	Admit(c Conn)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(c Conn)

func (f GatewayFunc) Admit(c Conn) { f(c) }

// Transport 统一的传输层接口
// 负责特定协议(TCP/WebSocket)的监听与连接接入
type Transport interface {
	Name() string
	Start(ctx context.Context, addr string, gateway Gateway, opt Options) error
}
