package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hongjun500/scp-chat/internal/protocol"
	"github.com/hongjun500/scp-chat/internal/transport"
	"github.com/hongjun500/scp-chat/pkg/logger"
)

// Options 客户端连接参数
type Options struct {
	Transport    string // transport.Tcp (默认) 或 transport.WebSocket
	MaxFrameSize int    // <=0 时使用 transport.ClientMaxFrameSize
}

func (o Options) maxFrameSize() int {
	if o.MaxFrameSize <= 0 {
		return transport.ClientMaxFrameSize
	}
	return o.MaxFrameSize
}

// Client is one SCP connection after a successful handshake. Send helpers
// are safe for concurrent use; Receive should run on a single goroutine.
type Client struct {
	conn     transport.Conn
	clientID string

	mu           sync.Mutex // username, prevUsername
	username     string
	prevUsername string

	closed atomic.Bool
}

// Dial connects to addr over the chosen transport and performs the CONNECT
// handshake. A blank username asks the server for a guest name.
func Dial(ctx context.Context, addr, username string, opt Options) (*Client, error) {
	conn, err := dialConn(ctx, addr, opt)
	if err != nil {
		return nil, err
	}
	c := New(conn, username)
	if err := c.Handshake(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func dialConn(ctx context.Context, addr string, opt Options) (transport.Conn, error) {
	switch opt.Transport {
	case "", transport.Tcp:
		var d net.Dialer
		nc, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		return transport.NewTCPConn(nc, opt.maxFrameSize()), nil
	case transport.WebSocket:
		url := addr
		if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			url = "ws://" + addr + "/ws"
		}
		wc, err := transport.DialWebSocket(ctx, url, opt.maxFrameSize())
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", url, err)
		}
		return wc, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", opt.Transport)
	}
}

// New wraps an already connected transport. Call Handshake before anything else.
func New(conn transport.Conn, username string) *Client {
	return &Client{
		conn:     conn,
		clientID: uuid.NewString(),
		username: strings.TrimSpace(username),
	}
}

// Handshake 发送 CONNECT 并等待 CONNECT_ACK
func (c *Client) Handshake() error {
	if err := c.Send(protocol.NewConnect(c.clientID, c.Username())); err != nil {
		return err
	}
	raw, err := c.conn.ReadFrame()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrNoResponse
		}
		return fmt.Errorf("read handshake response: %w", err)
	}
	msg, err := protocol.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	switch m := msg.(type) {
	case *protocol.ConnectAckMessage:
		if !m.OK() {
			return &RejectedError{Code: m.Status, Message: m.Text}
		}
	case *protocol.ErrorMessage:
		return &RejectedError{Code: m.Code, Message: m.Text}
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedResponse, msg.Type())
	}
	logger.L().Sugar().Infow("client_connected", "client_id", c.clientID, "user", c.Username(), "remote", c.conn.RemoteAddr())
	return nil
}

func (c *Client) ClientID() string { return c.clientID }

// Username 客户端认为自己当前使用的用户名
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Send validates, encodes and writes one message.
func (c *Client) Send(m protocol.Message) error {
	if c.closed.Load() {
		return ErrClosed
	}
	payload, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	return c.conn.WriteFrame(payload)
}

func (c *Client) SendChatToAll(content string) error {
	return c.Send(protocol.NewChat(c.Username(), content))
}

func (c *Client) SendDirect(to, content string) error {
	return c.Send(protocol.NewDirect(c.Username(), strings.TrimSpace(to), content))
}

// RequestUsernameChange switches the local name immediately; a USERNAME_TAKEN
// reply seen by Receive switches it back.
func (c *Client) RequestUsernameChange(name string) error {
	name = strings.TrimSpace(name)
	if err := protocol.ValidateUsername(name); err != nil {
		return err
	}
	c.mu.Lock()
	prev := c.username
	c.prevUsername, c.username = prev, name
	c.mu.Unlock()
	if err := c.Send(protocol.NewSetUsername(name)); err != nil {
		c.mu.Lock()
		c.username, c.prevUsername = prev, ""
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Client) RequestUserList() error {
	return c.Send(protocol.NewListUsers())
}

// Disconnect 通知服务端后关闭连接，重复调用无副作用
func (c *Client) Disconnect() error {
	if c.closed.Load() {
		return nil
	}
	err := c.Send(protocol.NewDisconnect(protocol.ClientExitReason))
	_ = c.Close()
	return err
}

func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

// Receive reads frames until the server closes the connection, ctx is done
// or Close is called, handing every valid message to handler. Invalid frames
// are logged and skipped. A DISCONNECT from the server closes the client.
func (c *Client) Receive(ctx context.Context, handler func(protocol.Message)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()
	for {
		raw, err := c.conn.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || c.closed.Load() {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		msg, err := protocol.Parse(raw)
		if err != nil {
			logger.L().Sugar().Warnw("client_invalid_message", "err", err)
			continue
		}
		c.track(msg)
		handler(msg)
		if _, ok := msg.(*protocol.DisconnectMessage); ok {
			_ = c.Close()
			return nil
		}
	}
}

// track 根据服务端回复修正本地用户名
func (c *Client) track(msg protocol.Message) {
	em, ok := msg.(*protocol.ErrorMessage)
	if !ok || em.Code != protocol.CodeUsernameTaken {
		return
	}
	c.mu.Lock()
	if c.prevUsername != "" {
		c.username, c.prevUsername = c.prevUsername, ""
	}
	c.mu.Unlock()
}
