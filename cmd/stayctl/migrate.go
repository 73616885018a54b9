package main

import (
	"fmt"

	"homestay-booking/internal/database"
	"homestay-booking/internal/logger"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or revert database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			db, err := database.New(cfg.DB, log)
			if err != nil {
				return err
			}
			defer db.Close()

			sqlDB, ok := database.DB(db)
			if !ok {
				return fmt.Errorf("database handle does not support migrations")
			}
			if err := database.Migrate(sqlDB, dir, args[0] == "up"); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations %s: done\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Migrations directory (defaults to MIGRATIONS_DIR)")
	return cmd
}
