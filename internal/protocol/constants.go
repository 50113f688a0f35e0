package protocol

// 协议常量与字段长度限制
const (
	Version = "1.0"

	MinUsernameLength = 3
	MaxUsernameLength = 32
	MaxContentLength  = 1024

	// GuestPrefix 未指定用户名时服务端合成 guest-xxxxxxxx
	GuestPrefix = "guest-"
)

// 服务端固定文案
const (
	WelcomeText      = "Welcome to SCP v1"
	ServerBusyText   = "Server is at capacity"
	NotAllowedText   = "Message type not allowed in this state"
	ShutdownText     = "Server shutting down"
	StatusOK         = "OK"
	StatusError      = "ERROR"
	ClientExitReason = "client_exit"
	ServerStopReason = "server_shutdown"
)
