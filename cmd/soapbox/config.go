package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configValidateCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/soapbox/soapbox.yaml", "Path to configuration file")
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  Listen address: %s\n", cfg.API.ListenAddr)
	fmt.Printf("  Database path: %s\n", cfg.Database.Path)
	fmt.Printf("  Seen-post index: %s\n", cfg.Index.Path)
	fmt.Printf("  Scheduler: %v (poll %s, concurrency %d)\n",
		cfg.Scheduler.Enabled, cfg.Scheduler.PollInterval, cfg.Scheduler.Concurrency)
	fmt.Printf("  Metrics: %v (%s%s)\n", cfg.Metrics.Enabled, cfg.Metrics.ListenAddr, cfg.Metrics.Path)

	for platform, limit := range cfg.RateLimit.PerHour {
		fmt.Printf("    rate limit %s: %d/hour\n", platform, limit)
	}

	return nil
}
