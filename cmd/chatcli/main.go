package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/wschat/internal/chatclient"
	"github.com/Tyrowin/wschat/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := chatclient.DefaultConfig()
	cfg.URL = "ws://localhost:3001"
	var logLevel string

	cmd := &cobra.Command{
		Use:   "wschat [url]",
		Short: "Terminal client for the broadcast chat server",
		Long: `wschat connects to a chat server and relays stdin lines as messages.

Lines starting with "/name " change your display name. The client reconnects
with exponential backoff whenever the connection drops.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewWithWriter(os.Stderr, "text", logLevel)
			if len(args) == 1 {
				cfg.URL = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := chatclient.New(cfg)
			client.SetLogger(logger)
			client.OnEvent(func(ev chatclient.Event) {
				printEvent(cmd.OutOrStdout(), ev)
			})

			go readInput(ctx, cmd.InOrStdin(), client, cmd.ErrOrStderr())

			err := client.Run(ctx)
			if errors.Is(err, context.Canceled) || errors.Is(err, chatclient.ErrClosed) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&cfg.BaseDelay, "base-delay", cfg.BaseDelay, "reconnect base delay, doubled per attempt")
	cmd.Flags().DurationVar(&cfg.MaxDelay, "max-delay", cfg.MaxDelay, "maximum reconnect delay")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	return cmd
}

func readInput(ctx context.Context, in io.Reader, client *chatclient.Client, errOut io.Writer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()

		var err error
		if name, ok := strings.CutPrefix(line, "/name "); ok {
			err = client.SetName(ctx, name)
		} else {
			err = client.Send(ctx, line)
		}
		if err != nil {
			fmt.Fprintf(errOut, "send failed: %v\n", err)
		}
	}
	_ = client.Close()
}

func printEvent(w io.Writer, ev chatclient.Event) {
	switch ev.Type {
	case chatclient.EventMessage:
		fmt.Fprintf(w, "[%s] %s: %s\n", ev.CreatedAt, ev.Username, ev.Text)
	case chatclient.EventHello:
		fmt.Fprintf(w, "* you are %s (%s)\n", ev.Username, ev.UserID)
	default:
		fmt.Fprintf(w, "* %s\n", ev.Text)
	}
}
