package command

import (
	"strings"

	"github.com/hongjun500/scp-chat/internal/protocol"
)

// Render formats an incoming message for the console. CONNECT_ACK and the
// client-to-server types are not shown.
func Render(m protocol.Message) (string, bool) {
	switch v := m.(type) {
	case *protocol.ChatMessage:
		if v.Direct {
			return "[DM from " + v.From + "] " + v.Content, true
		}
		return "[" + v.From + "] " + v.Content, true
	case *protocol.ServerBroadcastMessage:
		return "[SERVER] " + v.Content, true
	case *protocol.ErrorMessage:
		return "[ERROR] " + v.Code + ": " + v.Text, true
	case *protocol.UserListMessage:
		return "[USERS] " + strings.Join(v.Users, ", "), true
	case *protocol.DisconnectMessage:
		return "[SERVER] Disconnect: " + v.Reason, true
	default:
		return "", false
	}
}
