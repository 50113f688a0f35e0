package transport

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/hongjun500/scp-chat/pkg/logger"
)

// TCPServer implements Transport using length-prefixed frames over TCP
type TCPServer struct{}

func (s *TCPServer) Name() string { return Tcp }

func (s *TCPServer) Start(ctx context.Context, addr string, gateway Gateway, opt Options) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, gateway, opt)
}

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

func nextAcceptDelay(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptDelay
	}
	if d *= 2; d > maxAcceptDelay {
		return maxAcceptDelay
	}
	return d
}

// Serve accepts on ln until ctx is cancelled. Cancelling closes the listener;
// accept errors observed after that are swallowed and Serve returns nil.
func (s *TCPServer) Serve(ctx context.Context, ln net.Listener, gateway Gateway, opt Options) error {
	logger.L().Sugar().Infow("tcp_listen", "addr", ln.Addr().String())
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ln.Close()
	}()
	maxFrame := opt.maxFrameSize()
	var tempDelay time.Duration // 连续 accept 失败时的退避
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			tempDelay = nextAcceptDelay(tempDelay)
			logger.L().Sugar().Warnw("tcp_accept_error", "err", err, "retry_in", tempDelay)
			select {
			case <-time.After(tempDelay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		tempDelay = 0
		logger.L().Sugar().Debugw("tcp_accepted", "remote", conn.RemoteAddr().String())
		gateway.Admit(NewTCPConn(conn, maxFrame))
	}
}
