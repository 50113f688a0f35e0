package server

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/hongjun500/scp-chat/internal/protocol"
	"github.com/hongjun500/scp-chat/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, opt Options) (*Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := New(opt)
	done := make(chan error, 1)
	go func() { done <- s.ServeTCP(context.Background(), ln) }()
	t.Cleanup(func() {
		s.Shutdown()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Errorf("ServeTCP did not return")
		}
	})
	return s, ln.Addr().String()
}

// peer 测试用的裸帧客户端
type peer struct {
	t    *testing.T
	conn transport.Conn
}

func dialTCP(t *testing.T, addr string) *peer {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	_ = c.SetDeadline(time.Now().Add(5 * time.Second))
	p := &peer{t: t, conn: transport.NewTCPConn(c, transport.ClientMaxFrameSize)}
	t.Cleanup(func() { _ = p.conn.Close() })
	return p
}

func (p *peer) send(m protocol.Message) {
	p.t.Helper()
	data, err := protocol.Encode(m)
	require.NoError(p.t, err)
	require.NoError(p.t, p.conn.WriteFrame(data))
}

func (p *peer) recv() protocol.Message {
	p.t.Helper()
	data, err := p.conn.ReadFrame()
	require.NoError(p.t, err)
	m, err := protocol.Parse(data)
	require.NoError(p.t, err)
	return m
}

func (p *peer) expectBroadcast(content string) {
	p.t.Helper()
	sb, ok := p.recv().(*protocol.ServerBroadcastMessage)
	require.True(p.t, ok, "expected SERVER_BROADCAST %q", content)
	assert.Equal(p.t, content, sb.Content)
}

func (p *peer) expectEOF() {
	p.t.Helper()
	_, err := p.conn.ReadFrame()
	require.Error(p.t, err)
	assert.True(p.t, errors.Is(err, io.EOF), "got %v", err)
}

func (p *peer) handshake(name string) {
	p.t.Helper()
	p.send(protocol.NewConnect("c-"+name, name))
	ack, ok := p.recv().(*protocol.ConnectAckMessage)
	require.True(p.t, ok, "expected CONNECT_ACK")
	require.Equal(p.t, protocol.StatusOK, ack.Status)
	require.Equal(p.t, protocol.WelcomeText, ack.Text)
}

func connect(t *testing.T, addr, name string) *peer {
	t.Helper()
	p := dialTCP(t, addr)
	p.handshake(name)
	return p
}

func TestHappyHandshake(t *testing.T) {
	s, addr := startServer(t, Options{MaxClients: 10})
	bob := connect(t, addr, "bob")
	connect(t, addr, "alice")
	bob.expectBroadcast("alice joined")
	assert.Equal(t, []string{"alice", "bob"}, s.Registry().ListUsernames())
}

func TestRejectOnCapacity(t *testing.T) {
	s, addr := startServer(t, Options{MaxClients: 1})
	alice := connect(t, addr, "alice")

	second := dialTCP(t, addr)
	em, ok := second.recv().(*protocol.ErrorMessage)
	require.True(t, ok)
	assert.Equal(t, protocol.CodeServerBusy, em.Code)
	assert.Equal(t, protocol.ServerBusyText, em.Text)
	second.expectEOF()
	assert.Equal(t, 1, s.LiveSessions())

	alice.send(protocol.NewDisconnect(protocol.ClientExitReason))
	alice.expectEOF()
	require.Eventually(t, func() bool { return s.LiveSessions() == 0 }, 2*time.Second, 10*time.Millisecond)
	connect(t, addr, "carol")
}

func TestCapacityCountsUnnamedSessions(t *testing.T) {
	_, addr := startServer(t, Options{MaxClients: 1})
	dialTCP(t, addr)

	second := dialTCP(t, addr)
	em, ok := second.recv().(*protocol.ErrorMessage)
	require.True(t, ok)
	assert.Equal(t, protocol.CodeServerBusy, em.Code)
}

func TestDuplicateUsername(t *testing.T) {
	s, addr := startServer(t, Options{MaxClients: 10})
	connect(t, addr, "alice")

	dup := dialTCP(t, addr)
	dup.send(protocol.NewConnect("c2", "alice"))
	em, ok := dup.recv().(*protocol.ErrorMessage)
	require.True(t, ok)
	assert.Equal(t, protocol.CodeUsernameTaken, em.Code)
	dup.expectEOF()
	assert.Equal(t, 1, s.Registry().Size())
}

func TestDirectMessageEndToEnd(t *testing.T) {
	_, addr := startServer(t, Options{MaxClients: 10})
	alice := connect(t, addr, "alice")
	bob := connect(t, addr, "bob")
	alice.expectBroadcast("bob joined")
	carol := connect(t, addr, "carol")
	alice.expectBroadcast("carol joined")
	bob.expectBroadcast("carol joined")

	dm := protocol.NewDirect("alice", "bob", "hi")
	alice.send(dm)
	got, ok := bob.recv().(*protocol.ChatMessage)
	require.True(t, ok)
	assert.Equal(t, dm, got)

	// 私聊不会出现在第三方：carol 紧接着收到的是自己的列表
	carol.send(protocol.NewListUsers())
	_, ok = carol.recv().(*protocol.UserListMessage)
	assert.True(t, ok)
	alice.send(protocol.NewListUsers())
	_, ok = alice.recv().(*protocol.UserListMessage)
	assert.True(t, ok)
}

func TestBroadcastEndToEnd(t *testing.T) {
	_, addr := startServer(t, Options{MaxClients: 10})
	a := connect(t, addr, "AAA")
	b := connect(t, addr, "BBB")
	a.expectBroadcast("BBB joined")
	c := connect(t, addr, "CCC")
	a.expectBroadcast("CCC joined")
	b.expectBroadcast("CCC joined")

	a.send(protocol.NewChat("AAA", "hello"))
	for _, p := range []*peer{b, c} {
		cm, ok := p.recv().(*protocol.ChatMessage)
		require.True(t, ok)
		assert.Equal(t, "hello", cm.Content)
		assert.Equal(t, "AAA", cm.From)
	}
	a.send(protocol.NewListUsers())
	_, ok := a.recv().(*protocol.UserListMessage)
	assert.True(t, ok, "sender must not see its own broadcast")
}

func TestGracefulLeaveEndToEnd(t *testing.T) {
	_, addr := startServer(t, Options{MaxClients: 10})
	alice := connect(t, addr, "alice")
	bob := connect(t, addr, "bob")
	alice.expectBroadcast("bob joined")

	alice.send(protocol.NewDisconnect(protocol.ClientExitReason))
	bob.expectBroadcast("alice left")
	bob.send(protocol.NewListUsers())
	ul, ok := bob.recv().(*protocol.UserListMessage)
	require.True(t, ok)
	assert.Equal(t, []string{"bob"}, ul.Users)
}

func TestFrameTooLargeClosesSession(t *testing.T) {
	s, addr := startServer(t, Options{MaxClients: 10, MaxFrameSize: 256})
	alice := connect(t, addr, "alice")
	bob := connect(t, addr, "bob")
	alice.expectBroadcast("bob joined")

	oversized := `{"type":"LIST_USERS","timestamp":1,"pad":"` + strings.Repeat("x", 300) + `"}`
	require.NoError(t, bob.conn.WriteFrame([]byte(oversized)))
	alice.expectBroadcast("bob left")
	require.Eventually(t, func() bool { return s.LiveSessions() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestShutdownNotifiesAndCloses(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := New(Options{MaxClients: 10})
	done := make(chan error, 1)
	go func() { done <- s.ServeTCP(context.Background(), ln) }()
	addr := ln.Addr().String()

	alice := connect(t, addr, "alice")
	bob := connect(t, addr, "bob")
	alice.expectBroadcast("bob joined")

	s.Shutdown()
	s.Shutdown()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ServeTCP did not return after Shutdown")
	}

	for _, p := range []*peer{alice, bob} {
		p.expectBroadcast(protocol.ShutdownText)
		for {
			if _, err := p.conn.ReadFrame(); err != nil {
				break
			}
		}
	}
	assert.Equal(t, 0, s.LiveSessions())
	assert.Equal(t, 0, s.Registry().Size())

	_, err = net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestWebSocketAndTCPShareRegistry(t *testing.T) {
	s, addr := startServer(t, Options{MaxClients: 2})
	wsLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.ServeWS(context.Background(), wsLn) }()

	alice := connect(t, addr, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	wc, err := transport.DialWebSocket(ctx, "ws://"+wsLn.Addr().String()+"/ws", 0)
	require.NoError(t, err)
	bob := &peer{t: t, conn: wc}
	t.Cleanup(func() { _ = wc.Close() })
	bob.handshake("bob")
	alice.expectBroadcast("bob joined")

	alice.send(protocol.NewDirect("alice", "bob", "over ws"))
	cm, ok := bob.recv().(*protocol.ChatMessage)
	require.True(t, ok)
	assert.Equal(t, "over ws", cm.Content)

	third := dialTCP(t, addr)
	em, ok := third.recv().(*protocol.ErrorMessage)
	require.True(t, ok)
	assert.Equal(t, protocol.CodeServerBusy, em.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(Options{MaxClients: 1})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, Addrs{TCP: "127.0.0.1:0", WS: "127.0.0.1:0"}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunStopsOnShutdown(t *testing.T) {
	s := New(Options{MaxClients: 1})
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), Addrs{TCP: "127.0.0.1:0"}) }()

	time.Sleep(50 * time.Millisecond)
	s.Shutdown()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestRunReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := New(Options{MaxClients: 1})
	err = s.Run(context.Background(), Addrs{TCP: ln.Addr().String()})
	assert.Error(t, err)
}
