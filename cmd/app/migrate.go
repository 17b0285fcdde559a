package main

import (
	"github.com/spf13/cobra"

	dbadapter "postsync/internal/adapters/database"
	"postsync/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dbadapter.AutoMigrate(config.DB); err != nil {
			return err
		}
		config.Logger.Info("✅ Database migrations completed")
		return nil
	},
}
