package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soapboxhq/soapbox/internal/db"
	"github.com/soapboxhq/soapbox/internal/repository"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Operator API token management",
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new API token",
	RunE:  runTokenCreate,
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke [id]",
	Short: "Revoke an API token",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenRevoke,
}

var tokenName string

func init() {
	tokenCreateCmd.Flags().StringVar(&tokenName, "name", "", "Token label (e.g. who or what will use it)")
	tokenCreateCmd.MarkFlagRequired("name")

	tokenCmd.AddCommand(tokenCreateCmd)
	tokenCmd.AddCommand(tokenRevokeCmd)

	tokenCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/soapbox/soapbox.yaml", "Path to configuration file")
}

func openTokens(cmd *cobra.Command) (*db.DB, *repository.APITokenRepository, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	return database, repository.NewAPITokenRepository(database.DB), nil
}

func runTokenCreate(cmd *cobra.Command, args []string) error {
	database, tokens, err := openTokens(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	created, err := tokens.Create(tokenName)
	if err != nil {
		return err
	}

	fmt.Printf("Token created: %s (%s)\n", created.Token.ID, created.Token.Name)
	fmt.Println()
	// Only the bcrypt hash is stored; the full token cannot be recovered later.
	fmt.Printf("  %s\n", created.Full)
	fmt.Println()
	fmt.Println("Save this token now. It will not be shown again.")
	return nil
}

func runTokenRevoke(cmd *cobra.Command, args []string) error {
	database, tokens, err := openTokens(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := tokens.Revoke(args[0]); err != nil {
		return err
	}

	fmt.Printf("Token %s revoked\n", args[0])
	return nil
}
