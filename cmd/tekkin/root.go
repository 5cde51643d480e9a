package main

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"tekkin/internal/config"
	appLog "tekkin/internal/log"
)

// Set with -ldflags at build time.
var (
	VERSION = "dev"
	COMMIT  = "unknown"
)

const (
	defaultConfigPath = "tekkin.yaml"
	defaultEnvFile    = ".env.local"
)

var (
	configurationFile string
	envFile           string
	verbose           bool
)

// initConfig loads the configuration, checks what purpose needs and applies
// the logging settings. It never touches the network.
func initConfig(purpose config.Purpose) (*config.Config, *time.Location, error) {
	cfg, err := config.Load(configurationFile, envFile)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not load configuration")
	}

	if err := cfg.Validate(purpose); err != nil {
		return nil, nil, errors.Wrap(err, "invalid configuration")
	}

	level := appLog.Level(strings.ToUpper(cfg.Log.Level))
	if verbose {
		level = appLog.LevelDebug
	}
	if err := appLog.Configure(level, appLog.Format(cfg.Log.Format)); err != nil {
		return nil, nil, errors.Wrap(err, "could not configure logging")
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid timezone")
	}
	return cfg, loc, nil
}

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tekkin",
		Short:        "TEKKIN news and spotlight service",
		Long:         `Harvests music news and artist tour dates and serves them as a JSON API.`,
		SilenceUsage: true,
	}

	cmd.SetOut(os.Stdout)
	cmd.PersistentFlags().StringVarP(&configurationFile, "config", "", defaultConfigPath, "The configuration filename")
	cmd.PersistentFlags().StringVarP(&envFile, "env-file", "", defaultEnvFile, "Dotenv file loaded before the environment overlay")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "", false, "Verbose logging.")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHarvestCmd())
	cmd.AddCommand(newMigrationsCmd())

	return cmd
}

func Execute() {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	appLog.Sync()
	if err != nil {
		os.Exit(1)
	}
}
