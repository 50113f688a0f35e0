package chat

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hongjun500/scp-chat/internal/observe"
	"github.com/hongjun500/scp-chat/internal/protocol"
	"github.com/hongjun500/scp-chat/internal/transport"
	"github.com/hongjun500/scp-chat/pkg/logger"
)

// SessionState 会话状态
type SessionState int32

const (
	StateAccepted SessionState = iota
	StateNamed
	StateRejected
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateNamed:
		return "named"
	case StateRejected:
		return "rejected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session owns one connection from accept to close: handshake, steady-state
// dispatch and teardown. Send may be called from any goroutine.
type Session struct {
	id       string
	conn     transport.Conn
	registry *Registry
	guest    func() string

	mu       sync.Mutex // username, state
	username string
	state    SessionState

	active  atomic.Bool
	writeMu sync.Mutex // 串行化所有写：自身 worker 与其它会话的广播会并发调用 Send
}

// NewSession 创建处于 ACCEPTED 状态的会话
func NewSession(id string, conn transport.Conn, registry *Registry) *Session {
	s := &Session{
		id:       id,
		conn:     conn,
		registry: registry,
		guest:    GuestName,
		state:    StateAccepted,
	}
	s.active.Store(true)
	return s
}

// GuestName 合成 guest-xxxxxxxx 用户名
func GuestName() string {
	return protocol.GuestPrefix + uuid.NewString()[:8]
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Active() bool         { return s.active.Load() }
func (s *Session) Conn() transport.Conn { return s.conn }

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st SessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Send frames and writes m. A write failure deactivates the session; later
// sends return transport.ErrSessionClosed without touching the connection.
func (s *Session) Send(m protocol.Message) error {
	payload, err := protocol.Encode(m)
	if err != nil {
		logger.L().Sugar().Warnw("session_encode_failed", "session", s.id, "type", m.Type(), "err", err)
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if !s.active.Load() {
		return transport.ErrSessionClosed
	}
	if err := s.conn.WriteFrame(payload); err != nil {
		s.active.Store(false)
		observe.IncSendFailure()
		logger.L().Sugar().Warnw("session_send_failed", "session", s.id, "user", s.Username(), "err", err)
		return err
	}
	return nil
}

func (s *Session) sendError(code, text string) {
	observe.IncError(code)
	_ = s.Send(protocol.NewError(code, text))
}

// Close 关闭底层连接，阻塞中的读取随之返回
func (s *Session) Close() error { return s.conn.Close() }

// Run drives the session until the peer leaves, a read fails or ctx is
// cancelled. The connection is always closed on return.
func (s *Session) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()
	defer s.teardown()

	if !s.handshake() {
		return
	}
	s.loop()
}

func (s *Session) handshake() bool {
	raw, err := s.conn.ReadFrame()
	if err != nil {
		if !isClosedErr(err) {
			logger.L().Sugar().Warnw("session_handshake_read_failed", "session", s.id, "err", err)
		}
		s.setState(StateRejected)
		return false
	}
	msg, err := protocol.Parse(raw)
	if err != nil {
		s.reject(protocol.CodeBadJSON, err.Error())
		return false
	}
	connect, ok := msg.(*protocol.ConnectMessage)
	if !ok {
		s.reject(protocol.CodeInvalidHandshake, "First message must be CONNECT")
		return false
	}
	observe.IncMessage(string(msg.Type()))

	desired := strings.TrimSpace(connect.Username)
	if desired == "" {
		desired = s.guest()
	}
	if code, detail := s.claim(desired); code != "" {
		s.reject(code, detail)
		return false
	}
	logger.L().Sugar().Infow("session_named", "session", s.id, "user", desired,
		"client_id", connect.ClientID, "remote", s.conn.RemoteAddr())

	_ = s.Send(protocol.NewConnectAck(protocol.StatusOK, protocol.WelcomeText))
	s.registry.Broadcast(protocol.NewServerBroadcast(desired+" joined"), s)
	return true
}

func (s *Session) reject(code, detail string) {
	logger.L().Sugar().Infow("session_rejected", "session", s.id, "code", code, "detail", detail)
	s.sendError(code, detail)
	s.active.Store(false)
	s.setState(StateRejected)
}

// claim 尝试占用 desired；失败时返回错误码与描述，原用户名保持不变
func (s *Session) claim(desired string) (code, detail string) {
	if err := protocol.ValidateUsername(desired); err != nil {
		return protocol.CodeInvalidUsername, err.Error()
	}
	current := s.Username()
	if desired == current {
		return "", ""
	}
	if !s.registry.Register(desired, s) {
		return protocol.CodeUsernameTaken, "Username already in use"
	}
	if current != "" {
		s.registry.Unregister(current)
	}
	s.mu.Lock()
	s.username = desired
	s.state = StateNamed
	s.mu.Unlock()
	return "", ""
}

func (s *Session) loop() {
	for s.active.Load() {
		raw, err := s.conn.ReadFrame()
		if err != nil {
			if !isClosedErr(err) {
				logger.L().Sugar().Warnw("session_read_failed", "session", s.id, "user", s.Username(), "err", err)
			}
			return
		}
		msg, err := protocol.Parse(raw)
		if err != nil {
			s.sendError(protocol.CodeInvalidMessage, err.Error())
			continue
		}
		observe.IncMessage(string(msg.Type()))

		switch m := msg.(type) {
		case *protocol.SetUsernameMessage:
			s.handleSetUsername(m)
		case *protocol.ChatMessage:
			s.handleChat(m)
		case *protocol.ListUsersMessage:
			_ = s.Send(protocol.NewUserList(s.registry.ListUsernames()))
		case *protocol.DisconnectMessage:
			logger.L().Sugar().Infow("session_disconnect", "session", s.id, "user", s.Username(), "reason", m.Reason)
			s.active.Store(false)
			return
		default:
			s.sendError(protocol.CodeNotAllowed, protocol.NotAllowedText)
		}
	}
}

func (s *Session) handleSetUsername(m *protocol.SetUsernameMessage) {
	old := s.Username()
	desired := strings.TrimSpace(m.Username)
	if code, detail := s.claim(desired); code != "" {
		s.sendError(code, detail)
		return
	}
	if desired != old {
		s.registry.Broadcast(protocol.NewServerBroadcast(old+" is now known as "+desired), s)
	}
}

func (s *Session) handleChat(m *protocol.ChatMessage) {
	if strings.TrimSpace(m.From) != s.Username() {
		s.sendError(protocol.CodeInvalidSender, "from field must match session username")
		return
	}
	if !m.Direct {
		s.registry.Broadcast(m, s)
		return
	}
	to := strings.TrimSpace(m.To)
	target := s.registry.Get(to)
	if target == nil {
		s.sendError(protocol.CodeUnknownUser, "User not found: "+to)
		return
	}
	observe.IncDirect()
	if err := target.Send(m); err != nil {
		logger.L().Sugar().Debugw("session_direct_failed", "from", m.From, "to", to, "err", err)
	}
}

func (s *Session) teardown() {
	s.active.Store(false)
	s.mu.Lock()
	name := s.username
	s.username = ""
	if s.state != StateRejected {
		s.state = StateClosed
	}
	s.mu.Unlock()

	if name != "" {
		s.registry.Unregister(name)
		s.registry.Broadcast(protocol.NewServerBroadcast(name+" left"), s)
	}
	if err := s.conn.Close(); err != nil && !isClosedErr(err) {
		logger.L().Sugar().Debugw("session_close_failed", "session", s.id, "err", err)
	}
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
