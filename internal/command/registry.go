package command

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hongjun500/scp-chat/pkg/logger"
)

var (
	// ErrQuit 由 /quit 返回，调用方据此结束输入循环
	ErrQuit    = errors.New("quit")
	ErrUnknown = errors.New("unknown command")
	ErrUsage   = errors.New("usage")
)

// UsageError 参数不完整，Usage 为正确写法
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string        { return "usage: " + e.Usage }
func (e *UsageError) Is(target error) bool { return target == ErrUsage }

// Chat is the client surface commands drive. *client.Client satisfies it.
type Chat interface {
	SendChatToAll(content string) error
	SendDirect(to, content string) error
	RequestUsernameChange(name string) error
	RequestUserList() error
	Disconnect() error
}

type Context struct {
	Chat Chat
	Out  io.Writer
	Args []string // 按空白切分后的参数
	Rest string   // 命令名之后的原始文本
	Raw  string
}

type HandlerFunc func(ctx *Context) error

type Command struct {
	Name    string
	Aliases []string
	Usage   string
	Help    string
	Handler HandlerFunc
}

type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Command
	list   []*Command
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Command),
		list:   make([]*Command, 0),
	}
}

func (r *Registry) Register(cmd *Command) error {
	if cmd == nil {
		return errors.New("command is nil")
	}
	name := strings.ToLower(strings.TrimSpace(cmd.Name))
	if name == "" {
		return errors.New("command name is empty")
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("command name must not contain '/':%s", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("command %s already registered", name)
	}
	keys := []string{name}
	for _, item := range cmd.Aliases {
		alias := strings.ToLower(strings.TrimSpace(item))
		if alias == "" {
			continue
		}
		if _, exists := r.byName[alias]; exists {
			return fmt.Errorf("command alias %s already registered", alias)
		}
		keys = append(keys, alias)
	}
	for _, k := range keys {
		r.byName[k] = cmd
	}
	r.list = append(r.list, cmd)
	return nil
}

func (r *Registry) Get(name string) (*Command, bool) {
	k := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.byName[k]
	return cmd, ok
}

func (r *Registry) List() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, len(r.list))
	copy(out, r.list)
	return out
}

// Execute runs one input line. Blank lines are ignored; anything that is
// not a registered slash command yields ErrUnknown.
func (r *Registry) Execute(raw string, ctx *Context) error {
	line := strings.TrimSpace(raw)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return ErrUnknown
	}
	name, rest := splitFirst(line)
	cmd, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	ctx.Raw = raw
	ctx.Rest = rest
	ctx.Args = strings.Fields(rest)
	logger.L().Sugar().Debugw("command_execute", "command", cmd.Name, "args", len(ctx.Args))
	return cmd.Handler(ctx)
}

// splitFirst 切出第一个空白分隔的词，其余部分去掉首尾空白
func splitFirst(s string) (head, tail string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}
