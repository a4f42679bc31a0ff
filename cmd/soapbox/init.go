package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soapboxhq/soapbox/internal/config"
)

var (
	initOutput  string
	initDataDir string
	initForce   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "soapbox.yaml", "Output configuration file path")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "/var/lib/soapbox", "Data directory for the database and index")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config file")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if !initForce {
		if _, err := os.Stat(initOutput); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", initOutput)
		}
	}

	cfg := config.Default()
	cfg.Database.Path = filepath.Join(initDataDir, "soapbox.db")
	cfg.Index.Path = filepath.Join(initDataDir, "seen.db")

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(initOutput, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Configuration written to %s\n", initOutput)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  soapbox migrate -c %s\n", initOutput)
	fmt.Printf("  soapbox token create --name admin -c %s\n", initOutput)
	fmt.Printf("  soapbox serve -c %s\n", initOutput)
	return nil
}
