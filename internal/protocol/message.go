package protocol

import "time"

// MessageType 表示 SCP v1 支持的消息类型，在线上以标识符字符串传输
type MessageType string

const (
	MsgConnect         MessageType = "CONNECT"
	MsgConnectAck      MessageType = "CONNECT_ACK"
	MsgSetUsername     MessageType = "SET_USERNAME"
	MsgListUsers       MessageType = "LIST_USERS"
	MsgUserList        MessageType = "USER_LIST"
	MsgChat            MessageType = "CHAT_MESSAGE"
	MsgServerBroadcast MessageType = "SERVER_BROADCAST"
	MsgError           MessageType = "ERROR"
	MsgDisconnect      MessageType = "DISCONNECT"
)

// Message is the closed set of SCP message variants. Every variant embeds
// Header, so the envelope keys (type, timestamp) sit beside the variant fields
// in the same JSON object.
type Message interface {
	Type() MessageType
	Timestamp() int64
	variant() MessageType
	validate() error
}

// Header 公共信封：类型标签 + 毫秒时间戳
type Header struct {
	Kind MessageType `json:"type"`
	Ts   int64       `json:"timestamp"`
}

func (h Header) Type() MessageType { return h.Kind }
func (h Header) Timestamp() int64  { return h.Ts }

// variant 返回 Go 变体固有的类型标签，与 Header.Kind 比对
func (ConnectMessage) variant() MessageType         { return MsgConnect }
func (ConnectAckMessage) variant() MessageType      { return MsgConnectAck }
func (SetUsernameMessage) variant() MessageType     { return MsgSetUsername }
func (ListUsersMessage) variant() MessageType       { return MsgListUsers }
func (UserListMessage) variant() MessageType        { return MsgUserList }
func (ChatMessage) variant() MessageType            { return MsgChat }
func (ServerBroadcastMessage) variant() MessageType { return MsgServerBroadcast }
func (ErrorMessage) variant() MessageType           { return MsgError }
func (DisconnectMessage) variant() MessageType      { return MsgDisconnect }

func newHeader(t MessageType) Header {
	return Header{Kind: t, Ts: time.Now().UnixMilli()}
}

// ConnectMessage C→S，只能作为第一条消息
type ConnectMessage struct {
	Header
	ClientID string `json:"clientId"`
	Username string `json:"username,omitempty"`
	Version  string `json:"version"`
}

// ConnectAckMessage S→C，握手结果
type ConnectAckMessage struct {
	Header
	Status string `json:"status"`
	Text   string `json:"message"`
}

// OK reports whether the server accepted the handshake.
func (m *ConnectAckMessage) OK() bool { return equalFoldOK(m.Status) }

// SetUsernameMessage C→S，改名请求
type SetUsernameMessage struct {
	Header
	Username string `json:"username"`
}

// ListUsersMessage C→S，无负载
type ListUsersMessage struct {
	Header
}

// UserListMessage S→C，在线用户快照
type UserListMessage struct {
	Header
	Users []string `json:"users"`
}

// ChatMessage 双向；Direct=true 时 To 必填
type ChatMessage struct {
	Header
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
	Direct  bool   `json:"direct"`
	Content string `json:"content"`
}

// ServerBroadcastMessage S→C，服务端通知（加入/离开/改名/关闭）
type ServerBroadcastMessage struct {
	Header
	Content string `json:"content"`
}

// ErrorMessage S→C，短错误码 + 描述
type ErrorMessage struct {
	Header
	Code string `json:"code"`
	Text string `json:"message"`
}

// DisconnectMessage 优雅断开，reason 可选
type DisconnectMessage struct {
	Header
	Reason string `json:"reason,omitempty"`
}

func NewConnect(clientID, username string) *ConnectMessage {
	return &ConnectMessage{Header: newHeader(MsgConnect), ClientID: clientID, Username: username, Version: Version}
}

func NewConnectAck(status, text string) *ConnectAckMessage {
	return &ConnectAckMessage{Header: newHeader(MsgConnectAck), Status: status, Text: text}
}

func NewSetUsername(username string) *SetUsernameMessage {
	return &SetUsernameMessage{Header: newHeader(MsgSetUsername), Username: username}
}

func NewListUsers() *ListUsersMessage {
	return &ListUsersMessage{Header: newHeader(MsgListUsers)}
}

// NewUserList copies users so the snapshot cannot be mutated by the caller.
func NewUserList(users []string) *UserListMessage {
	cp := make([]string, len(users))
	copy(cp, users)
	return &UserListMessage{Header: newHeader(MsgUserList), Users: cp}
}

// NewChat 创建群发消息
func NewChat(from, content string) *ChatMessage {
	return &ChatMessage{Header: newHeader(MsgChat), From: from, Content: content}
}

// NewDirect 创建私聊消息
func NewDirect(from, to, content string) *ChatMessage {
	return &ChatMessage{Header: newHeader(MsgChat), From: from, To: to, Direct: true, Content: content}
}

func NewServerBroadcast(content string) *ServerBroadcastMessage {
	return &ServerBroadcastMessage{Header: newHeader(MsgServerBroadcast), Content: content}
}

func NewError(code, text string) *ErrorMessage {
	return &ErrorMessage{Header: newHeader(MsgError), Code: code, Text: text}
}

func NewDisconnect(reason string) *DisconnectMessage {
	return &DisconnectMessage{Header: newHeader(MsgDisconnect), Reason: reason}
}
