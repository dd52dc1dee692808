package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jcdickinson/cargo-extract-readme/internal/mcp"
)

func newMCPCmd(opts *rootOptions, st *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run as MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server := mcp.NewServer(mcp.Defaults{
				Render:  st.renderOptions(),
				Source:  opts.source(st.cfg),
				Version: version,
			})

			errCh := make(chan error, 1)
			go func() { errCh <- server.Run() }()

			if err := waitForSignal(errCh); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(ctx)
		},
	}
}

func waitForSignal(errCh chan error) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case sig := <-sigs:
		slog.Info("received signal", "signal", sig)
		return nil
	case err := <-errCh:
		return err
	}
}
