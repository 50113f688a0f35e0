package command

import (
	"fmt"
	"io"
	"strings"
)

// RegisterBuiltins 注册客户端内置命令
func RegisterBuiltins(r *Registry) error {
	builtins := []*Command{
		{
			Name:  "all",
			Usage: "/all <message>",
			Help:  "Broadcast to all users",
			Handler: func(ctx *Context) error {
				if ctx.Rest == "" {
					return &UsageError{Usage: "/all <message>"}
				}
				return ctx.Chat.SendChatToAll(ctx.Rest)
			},
		},
		{
			Name:    "dm",
			Aliases: []string{"w"},
			Usage:   "/dm <user> <message>",
			Help:    "Direct message a user",
			Handler: func(ctx *Context) error {
				to, msg := splitFirst(ctx.Rest)
				if to == "" || msg == "" {
					return &UsageError{Usage: "/dm <user> <message>"}
				}
				return ctx.Chat.SendDirect(to, msg)
			},
		},
		{
			Name:  "name",
			Usage: "/name <new>",
			Help:  "Request a username change",
			Handler: func(ctx *Context) error {
				if ctx.Rest == "" {
					return &UsageError{Usage: "/name <new>"}
				}
				return ctx.Chat.RequestUsernameChange(ctx.Rest)
			},
		},
		{
			Name:    "list",
			Aliases: []string{"who"},
			Usage:   "/list",
			Help:    "Show connected users",
			Handler: func(ctx *Context) error {
				return ctx.Chat.RequestUserList()
			},
		},
		{
			Name:    "help",
			Aliases: []string{"?"},
			Usage:   "/help",
			Help:    "Show this command list",
			Handler: func(ctx *Context) error {
				PrintHelp(ctx.Out, r)
				return nil
			},
		},
		{
			Name:    "quit",
			Aliases: []string{"exit"},
			Usage:   "/quit",
			Help:    "Disconnect and exit",
			Handler: func(ctx *Context) error {
				_ = ctx.Chat.Disconnect()
				return ErrQuit
			},
		},
	}
	for _, c := range builtins {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// PrintHelp 输出命令列表
func PrintHelp(w io.Writer, r *Registry) {
	if w == nil {
		return
	}
	_, _ = fmt.Fprintln(w, "Commands during session:")
	for _, c := range r.List() {
		line := fmt.Sprintf("  %-22s %s", c.Usage, c.Help)
		if len(c.Aliases) > 0 {
			line += " (aliases: /" + strings.Join(c.Aliases, ", /") + ")"
		}
		_, _ = fmt.Fprintln(w, line)
	}
}
