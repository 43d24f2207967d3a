package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/afalarconm/barnechea-driver/internal/orchestrator"
	"github.com/afalarconm/barnechea-driver/internal/scheduler"
	"github.com/afalarconm/barnechea-driver/internal/web"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll continuously and serve status endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			s := &scheduler.Scheduler{
				Runner:   orchestrator.New(cfg),
				Interval: cfg.PollInterval,
			}
			go func() { _ = s.Run(ctx) }()

			return web.Start(ctx, cfg.ListenAddr, web.Routes())
		},
	}
}
