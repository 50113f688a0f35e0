package protocol

import (
	"encoding/json"
	"fmt"
)

// factories 类型标签 → 变体构造器，闭集
var factories = map[MessageType]func() Message{
	MsgConnect:         func() Message { return &ConnectMessage{} },
	MsgConnectAck:      func() Message { return &ConnectAckMessage{} },
	MsgSetUsername:     func() Message { return &SetUsernameMessage{} },
	MsgListUsers:       func() Message { return &ListUsersMessage{} },
	MsgUserList:        func() Message { return &UserListMessage{} },
	MsgChat:            func() Message { return &ChatMessage{} },
	MsgServerBroadcast: func() Message { return &ServerBroadcastMessage{} },
	MsgError:           func() Message { return &ErrorMessage{} },
	MsgDisconnect:      func() Message { return &DisconnectMessage{} },
}

// Known reports whether t is one of the SCP v1 message types.
func Known(t MessageType) bool {
	_, ok := factories[t]
	return ok
}

// Encode 校验后序列化为 JSON 对象
func Encode(m Message) ([]byte, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Parse decodes one payload in strict order: JSON object, type tag, variant
// lookup, field decoding, validation. Unknown keys are ignored.
func Parse(data []byte) (Message, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, &ParseError{Kind: ErrBadJSON, Detail: "Bad JSON: " + err.Error()}
	}
	if obj == nil {
		return nil, &ParseError{Kind: ErrBadJSON, Detail: "Bad JSON: expected object"}
	}
	rawType, ok := obj["type"]
	if !ok {
		return nil, &ParseError{Kind: ErrMissingType, Detail: "Missing type field"}
	}
	var typ string
	if err := json.Unmarshal(rawType, &typ); err != nil {
		return nil, &ParseError{Kind: ErrMissingType, Detail: "Missing type field"}
	}
	factory, ok := factories[MessageType(typ)]
	if !ok {
		return nil, &ParseError{Kind: ErrUnknownType, Detail: "Unknown message type: " + typ}
	}
	m := factory()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, invalidf("Invalid %s: %v", typ, err)
	}
	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// MustEncode is for messages built by the server from constants; a failure
// there is a programming error.
func MustEncode(m Message) []byte {
	b, err := Encode(m)
	if err != nil {
		panic(fmt.Sprintf("protocol: encode %s: %v", m.Type(), err))
	}
	return b
}
