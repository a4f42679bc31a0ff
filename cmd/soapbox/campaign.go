package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/soapboxhq/soapbox/internal/app"
	"github.com/soapboxhq/soapbox/internal/db"
	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/repository"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Campaign management commands",
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns",
	RunE:  runCampaignList,
}

var campaignStartCmd = &cobra.Command{
	Use:   "start [id]",
	Short: "Validate, activate, and run the first cycle of a campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignStart,
}

var campaignStopCmd = &cobra.Command{
	Use:   "stop [id]",
	Short: "Stop (or pause) a campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignStop,
}

var campaignRunCmd = &cobra.Command{
	Use:   "run [id]",
	Short: "Execute one cycle for a campaign immediately",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignRun,
}

var (
	campaignUser   string
	campaignStatus string
	campaignPause  bool
)

func init() {
	campaignListCmd.Flags().StringVar(&campaignUser, "user", "", "Filter by user ID")
	campaignListCmd.Flags().StringVar(&campaignStatus, "status", "", "Filter by status (draft, active, paused, stopped, error)")
	campaignStopCmd.Flags().BoolVar(&campaignPause, "pause", false, "Pause instead of stop (keeps the schedule)")

	campaignCmd.AddCommand(campaignListCmd)
	campaignCmd.AddCommand(campaignStartCmd)
	campaignCmd.AddCommand(campaignStopCmd)
	campaignCmd.AddCommand(campaignRunCmd)

	campaignCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/soapbox/soapbox.yaml", "Path to configuration file")
}

// openCore builds the full pipeline for one-shot CLI operations, logging only
// warnings and up.
func openCore(cmd *cobra.Command) (*app.Core, error) {
	_ = godotenv.Load()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	return app.NewCore(cmd.Context(), cfg, logger)
}

func runCampaignList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	campaigns := repository.NewCampaignRepository(database.DB)
	list, err := campaigns.List(repository.CampaignListFilter{
		UserID: campaignUser,
		Status: models.CampaignStatus(campaignStatus),
	})
	if err != nil {
		return err
	}

	fmt.Printf("%-36s  %-24s  %-10s  %-8s  %-6s  %s\n", "ID", "Name", "Platform", "Status", "Cycles", "Next")
	fmt.Println(strings.Repeat("-", 110))

	for _, c := range list {
		next := "-"
		if c.NextExecution != nil {
			next = c.NextExecution.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-36s  %-24s  %-10s  %-8s  %-6d  %s\n",
			c.ID, c.Name, c.Platform, c.Status, c.ExecutionCount, next)
	}

	return nil
}

func runCampaignStart(cmd *cobra.Command, args []string) error {
	core, err := openCore(cmd)
	if err != nil {
		return err
	}
	defer core.Close()

	result, err := core.Orchestrator.StartCampaign(context.Background(), args[0])
	if err != nil {
		return err
	}

	if !result.Validation.IsValid {
		fmt.Println("Campaign not started, settings invalid:")
		for _, problem := range result.Validation.Errors {
			fmt.Printf("  - %s\n", problem)
		}
		return nil
	}

	fmt.Printf("Campaign %s: %s\n", args[0], result.Status)
	if result.FirstCycleExecuted {
		fmt.Println("First cycle executed")
	}
	if result.NextExecution != nil {
		fmt.Printf("Next execution: %s\n", result.NextExecution.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runCampaignStop(cmd *cobra.Command, args []string) error {
	core, err := openCore(cmd)
	if err != nil {
		return err
	}
	defer core.Close()

	campaign, err := core.Orchestrator.StopCampaign(context.Background(), args[0], campaignPause)
	if err != nil {
		return err
	}

	fmt.Printf("Campaign %s: %s\n", campaign.ID, campaign.Status)
	return nil
}

func runCampaignRun(cmd *cobra.Command, args []string) error {
	core, err := openCore(cmd)
	if err != nil {
		return err
	}
	defer core.Close()

	result, err := core.Orchestrator.ExecuteCycle(context.Background(), args[0])
	if err != nil {
		return err
	}

	if !result.Executed {
		fmt.Printf("Cycle not executed: %s\n", result.Reason)
		return nil
	}

	fmt.Printf("Discovered: %d  Generated: %d  Posted: %d  Skipped: %d\n",
		result.Discovered, result.Generated, result.Posted, result.Skipped)
	for _, e := range result.Errors {
		fmt.Printf("  error: %s\n", e)
	}
	if result.NextExecution != nil {
		fmt.Printf("Next execution: %s\n", result.NextExecution.Format("2006-01-02 15:04:05"))
	}
	return nil
}
