package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soapboxhq/soapbox/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/soapbox/soapbox.yaml", "Path to configuration file")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return err
	}

	fmt.Println("Migrations completed successfully")
	return nil
}
