package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"imgbridge/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tool server on stdin/stdout",
	Long: `Run the tool server speaking line-delimited JSON-RPC on stdin/stdout.
Logs go to stderr; stdout carries protocol traffic only.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.log.Info("starting stdio server", "version", version)
	srv := mcp.NewServer(a.svc, a.log, os.Stdin, os.Stdout, version)
	return srv.Run(ctx)
}
