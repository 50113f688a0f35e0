package transport

import (
	"net"
	"sync"
)

// TCPConn 基于 net.Conn 的帧连接
type TCPConn struct {
	conn      net.Conn
	codec     *FrameCodec
	closeOnce sync.Once
	closeErr  error
}

func NewTCPConn(c net.Conn, maxFrameSize int) *TCPConn {
	return &TCPConn{conn: c, codec: NewFrameCodec(c, maxFrameSize)}
}

func (t *TCPConn) ReadFrame() ([]byte, error)      { return t.codec.ReadFrame() }
func (t *TCPConn) WriteFrame(payload []byte) error { return t.codec.WriteFrame(payload) }
func (t *TCPConn) Transport() string               { return Tcp }

func (t *TCPConn) RemoteAddr() string {
	if t.conn != nil && t.conn.RemoteAddr() != nil {
		return t.conn.RemoteAddr().String()
	}
	return ""
}

func (t *TCPConn) Close() error {
	t.closeOnce.Do(func() { t.closeErr = t.conn.Close() })
	return t.closeErr
}
