package protocol

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Validate 校验已解码消息的必填字段与长度约束
func Validate(m Message) error {
	if m == nil {
		return invalidf("message is nil")
	}
	// json 解码键名大小写不敏感，"Type" 之类的重复键会覆盖已选定的类型
	if m.Type() != m.variant() {
		return invalidf("type %q does not match %s", m.Type(), m.variant())
	}
	if m.Timestamp() <= 0 {
		return invalidf("timestamp missing")
	}
	return m.validate()
}

// ValidateUsername enforces the trimmed length range and the character whitelist.
func ValidateUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return invalidf("username required")
	}
	n := utf8.RuneCountInString(trimmed)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return invalidf("username length invalid")
	}
	if !usernamePattern.MatchString(trimmed) {
		return invalidf("username contains invalid characters")
	}
	return nil
}

func validateText(value, field string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return invalidf("%s required", field)
	}
	if utf8.RuneCountInString(trimmed) > MaxContentLength {
		return invalidf("%s too long", field)
	}
	return nil
}

func (m ConnectMessage) validate() error {
	if err := validateText(m.ClientID, "clientId"); err != nil {
		return err
	}
	if m.Version != Version {
		return invalidf("unsupported version: %q", m.Version)
	}
	if strings.TrimSpace(m.Username) != "" {
		return ValidateUsername(m.Username)
	}
	return nil
}

func (m ConnectAckMessage) validate() error {
	if err := validateText(m.Status, "status"); err != nil {
		return err
	}
	return validateText(m.Text, "message")
}

func (m SetUsernameMessage) validate() error { return ValidateUsername(m.Username) }

func (m ListUsersMessage) validate() error { return nil }

func (m UserListMessage) validate() error {
	if m.Users == nil {
		return invalidf("users required")
	}
	return nil
}

func (m ChatMessage) validate() error {
	if err := ValidateUsername(m.From); err != nil {
		return err
	}
	if err := validateText(m.Content, "content"); err != nil {
		return err
	}
	if m.Direct {
		return ValidateUsername(m.To)
	}
	return nil
}

func (m ServerBroadcastMessage) validate() error { return validateText(m.Content, "content") }

func (m ErrorMessage) validate() error {
	if err := validateText(m.Code, "code"); err != nil {
		return err
	}
	return validateText(m.Text, "message")
}

// reason 没有约束
func (m DisconnectMessage) validate() error { return nil }

func equalFoldOK(status string) bool { return strings.EqualFold(status, StatusOK) }
