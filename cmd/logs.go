package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/trackify-io/trackify/db"
	"github.com/trackify-io/trackify/eventlog"
	"go.uber.org/zap"
)

func openDB() (*db.DB, error) {
	sqlDB, err := db.NewSqlDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	return db.NewDB(sqlDB, db.DialectOf(cfg.Database), zap.S())
}

func newEventLog() (*eventlog.Logger, *db.DB, error) {
	d, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	logger, err := eventlog.New(cfg.Logging, d)
	if err != nil {
		_ = d.Close()
		return nil, nil, err
	}
	return logger, d, nil
}

func newLogsCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove event logs older than the retention period",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, d, err := newEventLog()
			if err != nil {
				return err
			}
			defer d.Close()
			defer logger.Close()

			result, err := logger.CleanupOldLogs(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("removed %d event logs and %d aggregates\n", result.Logs, result.Aggregates)
			return nil
		},
	}
}

func newLogsClearCmd() *cobra.Command {
	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every event log and aggregate",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if !prompt(cmd, "Are you sure? This operation is irreversible.") {
					return errors.New("canceled")
				}
			}
			logger, d, err := newEventLog()
			if err != nil {
				return err
			}
			defer d.Close()
			defer logger.Close()

			if err := logger.ClearAllLogs(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("event logs cleared")
			return nil
		},
	}
	clearCmd.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "yes")
	return clearCmd
}

func newLogsCmd() *cobra.Command {
	logs := &cobra.Command{
		Use:               "logs",
		Short:             "Event log commands",
		Long:              ``,
		PersistentPreRunE: loadConfig,
	}

	logs.PersistentFlags().StringVarP(&configurationFile, "config", "", "", "The configuration filename")

	logs.AddCommand(newLogsCleanupCmd())
	logs.AddCommand(newLogsClearCmd())

	return logs
}
