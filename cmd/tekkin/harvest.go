package main

import (
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tekkin/internal/config"
	"tekkin/internal/harvest"
	appLog "tekkin/internal/log"
	"tekkin/internal/store"
)

type runnerFactory func(cfg *config.Config, st store.Store, loc *time.Location) harvest.Runner

func newHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Run one harvest job and print the status of every source",
		Long:  ``,
	}

	cmd.AddCommand(newHarvestJobCmd("news", "Harvest the RSS/Atom news feeds",
		func(cfg *config.Config, st store.Store, _ *time.Location) harvest.Runner { return newsRunner(cfg, st) }))
	cmd.AddCommand(newHarvestJobCmd("events", "Scrape the artist pages on Bandsintown", eventsRunner))
	cmd.AddCommand(newHarvestJobCmd("manual", "Import the curated events", manualRunner))
	cmd.AddCommand(newHarvestJobCmd("calendars", "Import the ICS calendar subscriptions", calendarsRunner))

	return cmd
}

func newHarvestJobCmd(name, short string, factory runnerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loc, err := initConfig(config.PurposeHarvest)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			start := time.Now()
			results := factory(cfg, st, loc).Run(ctx)
			appLog.Info("harvest finished",
				"job", name,
				"sources", len(results),
				"failed", harvest.Failed(results),
				"duration", time.Since(start).String(),
			)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
}
