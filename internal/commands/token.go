package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/guardline/workforce-service/internal/auth"
	"github.com/guardline/workforce-service/internal/config"
)

// Real deployments verify tokens minted by the identity provider. This command
// signs one locally so the API can be exercised without an IdP.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development bearer token",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().String("external-id", "", "identity provider subject")
	tokenCmd.Flags().String("email", "", "email claim")
	tokenCmd.Flags().String("first-name", "", "given name claim")
	tokenCmd.Flags().String("last-name", "", "family name claim")
	_ = tokenCmd.MarkFlagRequired("external-id")
	_ = tokenCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	externalID, _ := cmd.Flags().GetString("external-id")
	email, _ := cmd.Flags().GetString("email")
	firstName, _ := cmd.Flags().GetString("first-name")
	lastName, _ := cmd.Flags().GetString("last-name")

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTLMinutes)
	token, expiresAt, err := tokens.GenerateToken(externalID, email, firstName, lastName)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	fmt.Println(token)
	fmt.Printf("expires_at: %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
