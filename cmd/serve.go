package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coinwatch/newsrag/internal/server"
)

var serveAllowAll bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the news query REST API server",
	Long:  `Starts the newsrag HTTP server exposing search, ask, timeline, and user personalisation endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		svcs, err := buildServices(ctx)
		if err != nil {
			return err
		}
		defer svcs.Close()

		srv := server.New(server.Config{
			Host:     svcs.cfg.Server.Host,
			Port:     svcs.cfg.Server.Port,
			AllowAll: serveAllowAll,
		}, svcs.rag, svcs.users)

		// Graceful shutdown.
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-sigCtx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		stats, err := svcs.rag.Stats(ctx)
		if err == nil {
			fmt.Fprintf(os.Stderr, "newsrag server v%s starting on %s:%d\n", Version, svcs.cfg.Server.Host, svcs.cfg.Server.Port)
			fmt.Fprintf(os.Stderr, "  Documents indexed: %d\n", stats.Store.Documents)
			fmt.Fprintf(os.Stderr, "  User profiles:     %d\n", stats.Users)
		}

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all-origins", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}
