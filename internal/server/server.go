package server

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/hongjun500/scp-chat/internal/chat"
	"github.com/hongjun500/scp-chat/internal/observe"
	"github.com/hongjun500/scp-chat/internal/protocol"
	"github.com/hongjun500/scp-chat/internal/transport"
	"github.com/hongjun500/scp-chat/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Options 服务端运行参数
type Options struct {
	MaxClients   int // 同时存活的会话上限
	MaxFrameSize int
}

// Addrs lists the listeners Run opens. Empty WS or Metrics disables that
// listener.
type Addrs struct {
	TCP     string
	WS      string
	Metrics string
}

// Server admits connections from any transport, enforces the capacity
// ceiling and owns one worker per accepted session.
type Server struct {
	opt      Options
	registry *chat.Registry
	sessions *transport.SessionManager

	listenCtx  context.Context
	stopListen context.CancelFunc
	sessCtx    context.Context
	stopSess   context.CancelFunc

	mu      sync.Mutex // running, wg.Add
	running bool
	wg      sync.WaitGroup
}

func New(opt Options) *Server {
	s := &Server{
		opt:      opt,
		registry: chat.NewRegistry(),
		sessions: transport.NewSessionManager(),
		running:  true,
	}
	s.listenCtx, s.stopListen = context.WithCancel(context.Background())
	s.sessCtx, s.stopSess = context.WithCancel(context.Background())
	return s
}

func (s *Server) Registry() *chat.Registry { return s.registry }

// LiveSessions 已接入且尚未关闭的会话数
func (s *Server) LiveSessions() int { return s.sessions.Count() }

func (s *Server) transportOptions() transport.Options {
	return transport.Options{MaxFrameSize: s.opt.MaxFrameSize}
}

// Admit implements transport.Gateway. It runs on the accepting goroutine.
func (s *Server) Admit(c transport.Conn) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		_ = c.Close()
		return
	}
	id := uuid.NewString()
	if !s.sessions.TryAdd(id, c, s.opt.MaxClients) {
		s.mu.Unlock()
		s.rejectBusy(c)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	observe.IncConnection(c.Transport(), "accepted")
	observe.AddSessions(1)
	logger.L().Sugar().Infow("session_accepted", "session", id, "transport", c.Transport(), "remote", c.RemoteAddr())

	sess := chat.NewSession(id, c, s.registry)
	go func() {
		defer s.wg.Done()
		defer observe.AddSessions(-1)
		defer s.sessions.Remove(id)
		sess.Run(s.sessCtx)
		logger.L().Sugar().Infow("session_closed", "session", id, "state", sess.State().String())
	}()
}

// rejectBusy 尽力写出一帧 SERVER_BUSY 后关闭，不占用会话名额
func (s *Server) rejectBusy(c transport.Conn) {
	observe.IncConnection(c.Transport(), "busy")
	observe.IncError(protocol.CodeServerBusy)
	logger.L().Sugar().Warnw("session_rejected_busy", "remote", c.RemoteAddr(), "limit", s.opt.MaxClients)
	if err := c.WriteFrame(protocol.MustEncode(protocol.NewError(protocol.CodeServerBusy, protocol.ServerBusyText))); err != nil {
		logger.L().Sugar().Debugw("busy_write_failed", "remote", c.RemoteAddr(), "err", err)
	}
	_ = c.Close()
}

// serveCtx is cancelled by either ctx or Shutdown.
func (s *Server) serveCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.listenCtx, cancel)
	return ctx, func() { stop(); cancel() }
}

// ServeTCP accepts SCP connections on ln until ctx is done or Shutdown is called.
func (s *Server) ServeTCP(ctx context.Context, ln net.Listener) error {
	ctx, cancel := s.serveCtx(ctx)
	defer cancel()
	return (&transport.TCPServer{}).Serve(ctx, ln, s, s.transportOptions())
}

// ServeWS accepts SCP-over-WebSocket connections on ln.
func (s *Server) ServeWS(ctx context.Context, ln net.Listener) error {
	ctx, cancel := s.serveCtx(ctx)
	defer cancel()
	return (&transport.WebSocketServer{}).Serve(ctx, ln, s, s.transportOptions())
}

// Run opens every configured listener and blocks until ctx is cancelled, a
// listener fails or Shutdown is called. The server is shut down on return.
func (s *Server) Run(ctx context.Context, addrs Addrs) error {
	tcpLn, err := net.Listen("tcp", addrs.TCP)
	if err != nil {
		return err
	}
	var wsLn net.Listener
	if addrs.WS != "" {
		if wsLn, err = net.Listen("tcp", addrs.WS); err != nil {
			_ = tcpLn.Close()
			return err
		}
	}

	rctx, cancel := s.serveCtx(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(rctx)
	g.Go(func() error { return s.ServeTCP(gctx, tcpLn) })
	if wsLn != nil {
		g.Go(func() error { return s.ServeWS(gctx, wsLn) })
	}
	if addrs.Metrics != "" {
		g.Go(func() error { return observe.StartHTTP(gctx, addrs.Metrics) })
	}
	g.Go(func() error {
		<-gctx.Done()
		s.Shutdown()
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Shutdown stops accepting, tells every named session the server is going
// away, closes all live transports and waits for the workers. Safe to call
// more than once.
func (s *Server) Shutdown() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.stopListen()
	n := s.registry.Broadcast(protocol.NewServerBroadcast(protocol.ShutdownText), nil)
	s.stopSess()
	closed := s.sessions.CloseAll()
	s.wg.Wait()
	logger.L().Sugar().Infow("server_shutdown", "notified", n, "closed", closed)
}
