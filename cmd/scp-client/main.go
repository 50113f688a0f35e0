package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hongjun500/scp-chat/internal/client"
	"github.com/hongjun500/scp-chat/internal/command"
	"github.com/hongjun500/scp-chat/internal/config"
	"github.com/hongjun500/scp-chat/internal/protocol"
	"github.com/hongjun500/scp-chat/internal/transport"
	"github.com/hongjun500/scp-chat/pkg/logger"
	"github.com/spf13/cobra"
)

var _ command.Chat = (*client.Client)(nil)

var (
	host      string
	port      int
	alias     string
	username  string
	hostsPath string
	useWS     bool
	logFile   string
)

var rootCmd = &cobra.Command{
	Use:           "scp-client",
	Short:         "Interactive SCP v1 chat client",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&host, "host", "127.0.0.1", "Server host")
	f.IntVar(&port, "port", 9000, "Server port")
	f.StringVar(&alias, "name", "", "Lookup host/port by alias in hosts file")
	f.StringVar(&username, "username", "guest", "Username to present to the server")
	f.StringVar(&hostsPath, "hosts", config.DefaultHostsPath, "Path to hosts file")
	f.BoolVar(&useWS, "ws", false, "Connect over WebSocket instead of TCP")
	f.StringVar(&logFile, "log-file", "", "Write client logs to this file")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(cmd.UsageString())
		command.PrintHelp(os.Stdout, commands())
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func commands() *command.Registry {
	reg := command.NewRegistry()
	if err := command.RegisterBuiltins(reg); err != nil {
		panic(err)
	}
	return reg
}

func resolveAddr() (string, error) {
	if alias == "" {
		return net.JoinHostPort(host, strconv.Itoa(port)), nil
	}
	hosts, err := config.LoadHosts(hostsPath)
	if err != nil {
		return "", err
	}
	entry, ok := hosts.FindByAlias(alias)
	if !ok {
		return "", fmt.Errorf("alias not found: %s", alias)
	}
	return entry.Addr(), nil
}

func run(cmd *cobra.Command, _ []string) error {
	logger.SetLevel("warn")
	if err := logger.Init(logFile); err != nil {
		return err
	}
	defer logger.Sync()

	addr, err := resolveAddr()
	if err != nil {
		return err
	}
	opt := client.Options{Transport: transport.Tcp}
	if useWS {
		opt.Transport = transport.WebSocket
	}

	dialCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	c, err := client.Dial(dialCtx, addr, username, opt)
	cancel()
	if err != nil {
		if re, ok := client.IsRejected(err); ok {
			return fmt.Errorf("connection rejected by %s: %s", addr, re.Message)
		}
		return fmt.Errorf("could not connect to %s. Is the server running and reachable? (%w)", addr, err)
	}
	defer c.Close()
	fmt.Printf("Connected to %s as %s\n", addr, c.Username())

	reg := commands()
	command.PrintHelp(os.Stdout, reg)

	recvDone := make(chan error, 1)
	go func() {
		recvDone <- c.Receive(cmd.Context(), func(m protocol.Message) {
			if line, ok := command.Render(m); ok {
				fmt.Println(line)
			}
		})
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	ctx := &command.Context{Chat: c, Out: os.Stdout}
	var usage *command.UsageError
	for {
		select {
		case err := <-recvDone:
			fmt.Println("Connection closed by server.")
			return err
		case line, ok := <-lines:
			if !ok {
				_ = c.Disconnect()
				return nil
			}
			err := reg.Execute(line, ctx)
			switch {
			case err == nil:
			case errors.Is(err, command.ErrQuit):
				fmt.Println("Disconnected. Bye!")
				return nil
			case errors.Is(err, command.ErrUnknown):
				fmt.Println("Unknown command. Type /help for the command list.")
			case errors.As(err, &usage):
				fmt.Println("Usage:", usage.Usage)
			default:
				fmt.Printf("Sorry, that command failed: %v\n", err)
			}
		}
	}
}
