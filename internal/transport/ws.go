package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hongjun500/scp-chat/pkg/logger"
)

// WSConn carries one SCP payload per WebSocket message
type WSConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex // gorilla 只允许单个并发写者
	closeOnce sync.Once
	closeErr  error
}

func NewWSConn(c *websocket.Conn, maxFrameSize int) *WSConn {
	if maxFrameSize > 0 {
		c.SetReadLimit(int64(maxFrameSize))
	}
	return &WSConn{conn: c}
}

func (w *WSConn) ReadFrame() ([]byte, error) {
	for {
		mt, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			if errors.Is(err, websocket.ErrReadLimit) {
				return nil, withContext(ErrFrameTooLarge, "websocket message")
			}
			return nil, err
		}
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (w *WSConn) WriteFrame(payload []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

func (w *WSConn) RemoteAddr() string { return w.conn.RemoteAddr().String() }
func (w *WSConn) Transport() string  { return WebSocket }

func (w *WSConn) Close() error {
	w.closeOnce.Do(func() {
		// WriteControl 可与其它写方法并发调用
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}

// DialWebSocket 客户端以 WebSocket 方式接入，例如 ws://127.0.0.1:9001/ws
func DialWebSocket(ctx context.Context, url string, maxFrameSize int) (*WSConn, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewWSConn(c, maxFrameSize), nil
}

// WebSocketServer implements Transport using WebSocket connections
type WebSocketServer struct {
	Path string // WebSocket endpoint path, defaults to "/ws"
}

func (ws *WebSocketServer) Name() string {
	return WebSocket
}

func (ws *WebSocketServer) path() string {
	if ws.Path == "" {
		return "/ws"
	}
	return ws.Path
}

// Handler 返回升级处理器，便于挂到已有的 mux 或 httptest 上
func (ws *WebSocketServer) Handler(gateway Gateway, opt Options) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	maxFrame := opt.maxFrameSize()
	mux := http.NewServeMux()
	mux.HandleFunc(ws.path(), func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.L().Sugar().Warnw("websocket_upgrade_error", "remote", r.RemoteAddr, "err", err)
			return
		}
		gateway.Admit(NewWSConn(conn, maxFrame))
	})
	return mux
}

func (ws *WebSocketServer) Start(ctx context.Context, addr string, gateway Gateway, opt Options) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ws.Serve(ctx, ln, gateway, opt)
}

// Serve 在 ln 上提供 WebSocket 接入，ctx 取消后优雅关闭
func (ws *WebSocketServer) Serve(ctx context.Context, ln net.Listener, gateway Gateway, opt Options) error {
	logger.L().Sugar().Infow("websocket_listen", "addr", ln.Addr().String(), "path", ws.path())
	server := &http.Server{Handler: ws.Handler(gateway, opt)}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
