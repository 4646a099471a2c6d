package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/wschat/internal/logging"
	"github.com/Tyrowin/wschat/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port      string
		logFormat string
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:   "wschat-server",
		Short: "Real-time broadcast chat server",
		Long: `wschat-server accepts WebSocket connections and relays every posted
message to all connected clients, along with join, leave and rename notices.

The listen port comes from WS_PORT (default 3001) unless --port is given.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.New(logFormat, logLevel)

			cfg := server.NewConfigFromEnv()
			if cmd.Flags().Changed("port") {
				cfg.Port = server.NormalizePort(port)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "port to listen on (overrides WS_PORT)")
	cmd.Flags().StringVar(&logFormat, "log-format", os.Getenv("LOG_FORMAT"), "log format: text or json")
	cmd.Flags().StringVar(&logLevel, "log-level", os.Getenv("LOG_LEVEL"), "log level: debug, info, warn or error")
	return cmd
}

func run(cfg *server.Config) error {
	hub := server.NewHub()
	server.StartHub(hub)

	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(hub, *cfg))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case sig := <-quit:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		slog.Warn("Hub shutdown incomplete", "error", err)
	}
	return nil
}
