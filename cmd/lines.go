package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/afalarconm/barnechea-driver/internal/discovery"
	"github.com/afalarconm/barnechea-driver/internal/saltala"
)

func newLinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lines",
		Short: "Resolve the configured line names to line ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			gateway := saltala.New(saltala.Config{
				BaseURL:   cfg.SaltalaBase,
				PublicURL: cfg.PublicURL,
			})
			finder := &discovery.Finder{
				Gateway:        gateway,
				TargetNames:    cfg.TargetLineNames,
				UnitHint:       cfg.UnitHint,
				CorporationID:  cfg.CorporationID,
				FallbackLineID: cfg.FallbackLineID,
				MockLineID:     cfg.MockLineID,
				MockLineName:   cfg.MockLineName,
			}

			targets := finder.Targets(context.Background())
			names := make([]string, 0, len(targets))
			for name := range targets {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("%s\t%d\n", name, targets[name])
			}
			return nil
		},
	}
}
