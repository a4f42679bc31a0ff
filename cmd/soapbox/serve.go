package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/soapboxhq/soapbox/internal/app"
	"github.com/soapboxhq/soapbox/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the service",
	RunE:  runServe,
}

var configFile string

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/soapbox/soapbox.yaml", "Path to configuration file")
}

// loadConfig reads the config file, falling back to built-in defaults when the
// default path does not exist and no --config was given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return config.Default(), nil
		}
	}
	return config.Load(configFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Deploy-time overrides (SOAPBOX_*) may live in a .env file
	_ = godotenv.Load()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, version)
	if err != nil {
		return err
	}

	return a.Run(ctx)
}
