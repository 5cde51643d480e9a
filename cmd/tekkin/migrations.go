package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"tekkin/internal/config"
	"tekkin/internal/store"
)

var answers = map[string]bool{
	"y":   true,
	"yes": true,
}

func prompt(cmd *cobra.Command, q string) bool {
	cmd.Print("> " + q + " [Y/N] ")
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return false
	}
	return answers[strings.ToLower(strings.TrimSpace(answer))]
}

// openMigrator validates the database settings and opens a migrator on them.
func openMigrator() (*store.Migrator, func() error, error) {
	cfg, _, err := initConfig(config.PurposeMigrate)
	if err != nil {
		return nil, nil, err
	}
	db, err := store.OpenDB(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return store.NewMigrator(db, cfg.Database.Driver), db.Close, nil
}

func newMigrationsResetCmd() *cobra.Command {
	var yes bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset the database",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeDB, err := openMigrator()
			if err != nil {
				return err
			}
			defer closeDB()

			if !yes {
				if !prompt(cmd, "Are you sure? This operation is irreversible.") {
					return errors.New("canceled")
				}
			}
			cmd.Println("resetting database...")
			if err := m.Reset(); err != nil {
				return err
			}
			cmd.Println("database successfully reset")
			return nil
		},
	}
	reset.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "yes")
	return reset
}

func newMigrationsCmd() *cobra.Command {
	migration := &cobra.Command{
		Use:   "migrations",
		Short: "Manage the database schema",
		Long:  ``,
	}

	migration.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the migration status",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeDB, err := openMigrator()
			if err != nil {
				return err
			}
			defer closeDB()

			version, dirty, err := m.Status()
			if err != nil {
				return err
			}

			if dirty {
				cmd.Printf("%d (dirty)\n", version)
			} else {
				cmd.Printf("%d\n", version)
			}
			return nil
		},
	})

	migration.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run any new migrations",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeDB, err := openMigrator()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := m.Up(); err != nil {
				return err
			}
			cmd.Println("database is up-to-date")
			return nil
		},
	})

	migration.AddCommand(newMigrationsResetCmd())

	return migration
}
