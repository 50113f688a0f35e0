package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hongjun500/scp-chat/internal/protocol"
	"github.com/hongjun500/scp-chat/internal/transport"
	"github.com/spf13/cobra"
)

var (
	addr     string
	username string
	maxFrame int
	useWS    bool
)

// peek 以普通会话身份登录，逐帧打印服务端发来的原始负载
var rootCmd = &cobra.Command{
	Use:           "peek",
	Short:         "Print every raw SCP frame a named session receives",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&addr, "addr", "localhost:9000", "server address")
	f.StringVar(&username, "username", "peek", "username to join as; empty asks for a guest name")
	f.IntVar(&maxFrame, "max", transport.ClientMaxFrameSize, "max frame size in bytes")
	f.BoolVar(&useWS, "ws", false, "connect over WebSocket")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dial(ctx context.Context) (transport.Conn, error) {
	if useWS {
		wc, err := transport.DialWebSocket(ctx, "ws://"+addr+"/ws", maxFrame)
		if err != nil {
			return nil, err
		}
		return wc, nil
	}
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return transport.NewTCPConn(c, maxFrame), nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	conn, err := dial(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("dial error: %w", err)
	}
	defer conn.Close()

	hello, err := protocol.Encode(protocol.NewConnect(uuid.NewString(), username))
	if err != nil {
		return err
	}
	if err := conn.WriteFrame(hello); err != nil {
		return fmt.Errorf("write connect: %w", err)
	}

	for {
		data, err := conn.ReadFrame()
		if err != nil {
			return fmt.Errorf("read frame error: %w", err)
		}
		fmt.Printf("Frame (%d bytes):\n", len(data))
		msg, perr := protocol.Parse(data)
		if perr != nil {
			fmt.Printf("  invalid: %v\n", perr)
		} else {
			fmt.Printf("  type: %s\n", msg.Type())
			fmt.Printf("  ts:   %s\n", time.UnixMilli(msg.Timestamp()).Format(time.RFC3339Nano))
		}
		if utf8.Valid(data) {
			fmt.Printf("  raw:  %s\n", data)
		} else {
			fmt.Printf("  raw:  <%d bytes of non-UTF-8>\n", len(data))
		}
	}
}
