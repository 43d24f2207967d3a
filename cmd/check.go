package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/afalarconm/barnechea-driver/internal/config"
	"github.com/afalarconm/barnechea-driver/internal/orchestrator"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a single polling cycle",
		Long: "Runs one cycle and exits. Exit code 42 means availability was found " +
			"and handled, 0 means nothing to do. Made for cron and CI schedulers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			handled, err := orchestrator.New(cfg).Run(ctx)
			if err != nil {
				return err
			}
			if handled {
				os.Exit(config.ExitAvailabilityHandled)
			}
			return nil
		},
	}
}
