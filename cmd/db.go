package cmd

import (
	"database/sql"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
	"github.com/trackify-io/trackify/db"
	"github.com/trackify-io/trackify/db/migrator"
)

var (
	quiet bool
)

func newMigrator() (*migrator.Migrator, *sql.DB, error) {
	sqlDB, err := db.NewSqlDB(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return migrator.New(sqlDB, db.DialectOf(cfg.Database), &migrator.Options{Quiet: quiet}), sqlDB, nil
}

func newDatabaseResetCmd() *cobra.Command {
	var yes bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset the database",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if !prompt(cmd, "Are you sure? This operation is irreversible.") {
					return errors.New("canceled")
				}
			}
			m, sqlDB, err := newMigrator()
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			if !quiet {
				cmd.Println("resetting database...")
			}
			if err := m.Reset(); err != nil {
				return err
			}
			if !quiet {
				cmd.Println("database successfully reset")
			}
			return nil
		},
	}
	reset.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "yes")
	return reset
}

func newDatabaseStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the migration status",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, sqlDB, err := newMigrator()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			list, err := m.Migrations()
			if err != nil {
				return err
			}
			version, dirty, err := m.Status()
			if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
				return err
			}

			executed := 0
			for _, migration := range list {
				state := "⏳ pending"
				if migration.Executed {
					state = "✅ executed"
					executed++
				}
				cmd.Printf("%d %s (%s)\n", migration.Version, migration.Name, state)
			}
			cmd.Println("Summary:")
			cmd.Printf("  Current version: %d\n", version)
			cmd.Printf("  Dirty: %t\n", dirty)
			cmd.Printf("  Executed: %d\n", executed)
			cmd.Printf("  Pending: %d\n", len(list)-executed)
			return nil
		},
	}
}

func newDatabaseUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run any new migrations",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, sqlDB, err := newMigrator()
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return err
			}
			cmd.Println("database is up-to-date")
			return nil
		},
	}
}

func newDatabaseCmd() *cobra.Command {

	database := &cobra.Command{
		Use:               "db",
		Short:             "Database commands",
		Long:              ``,
		PersistentPreRunE: loadConfig,
	}

	database.PersistentFlags().StringVarP(&configurationFile, "config", "", "", "The configuration filename")
	database.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	database.AddCommand(newDatabaseStatusCmd())
	database.AddCommand(newDatabaseUpCmd())
	database.AddCommand(newDatabaseResetCmd())

	return database
}
