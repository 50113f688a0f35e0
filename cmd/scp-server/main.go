package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hongjun500/scp-chat/internal/config"
	"github.com/hongjun500/scp-chat/internal/server"
	"github.com/hongjun500/scp-chat/pkg/logger"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "scp-server",
	Short:         "Run the SCP v1 chat server",
	Long:          "Accept SCP clients over TCP (and optionally WebSocket) using the settings in a JSON config file.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", config.DefaultServerConfigPath, "Server config file (JSON)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.LogFile); err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if cfg.LogLevel != "" {
		logger.SetLevel(cfg.LogLevel)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Options{MaxClients: cfg.MaxClients, MaxFrameSize: cfg.MaxFrameSize})
	addrs := server.Addrs{TCP: cfg.TCPAddr(), WS: cfg.WSAddr, Metrics: cfg.MetricsAddr}
	logger.L().Sugar().Infow("server_start", "tcp", addrs.TCP, "ws", addrs.WS, "metrics", addrs.Metrics, "max_clients", cfg.MaxClients)
	fmt.Printf("SCP server listening on %s (max %d clients)\n", addrs.TCP, cfg.MaxClients)

	if err := srv.Run(ctx, addrs); err != nil {
		logger.L().Sugar().Errorw("server_exit", "err", err)
		return err
	}
	fmt.Println("SCP server stopped")
	return nil
}
