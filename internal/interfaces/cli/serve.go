package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/mixingcompass/internal/bootstrap"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
)

// NewServeCmd creates the serve command, which runs the API server in the
// foreground until interrupted.
func NewServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MixingCompass API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			cfg := cliCtx.Config
			if port > 0 {
				cfg.Server.Port = port
			}

			// The server logs per its own config, not the CLI's
			// console logger.
			logger, err := logging.NewLogger(logging.LogConfig{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
			})
			if err != nil {
				return fmt.Errorf("create server logger: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			bootstrap.Version = Version
			app, err := bootstrap.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides config)")
	return cmd
}
