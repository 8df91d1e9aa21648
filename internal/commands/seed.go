package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/guardline/workforce-service/internal/config"
	"github.com/guardline/workforce-service/internal/domain"
	"github.com/guardline/workforce-service/internal/observability"
	"github.com/guardline/workforce-service/internal/persistence"
	"github.com/guardline/workforce-service/internal/repository"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the bootstrap super admin account",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().String("external-id", "", "identity provider subject of the super admin")
	seedCmd.Flags().String("email", "", "email of the super admin")
	seedCmd.Flags().String("first-name", "Super", "first name")
	seedCmd.Flags().String("last-name", "Admin", "last name")
	_ = seedCmd.MarkFlagRequired("external-id")
	_ = seedCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	externalID, _ := cmd.Flags().GetString("external-id")
	email, _ := cmd.Flags().GetString("email")
	firstName, _ := cmd.Flags().GetString("first-name")
	lastName, _ := cmd.Flags().GetString("last-name")

	userRepo := repository.NewUserRepository(pg.PoolHandle())
	if existing, err := userRepo.FindActiveByExternalID(ctx, externalID); err == nil {
		logger.Info("super admin already present",
			zap.String("user_id", existing.ID),
			zap.String("role", string(existing.Role)))
		return nil
	}

	user := &domain.User{
		ExternalID: externalID,
		Email:      domain.NormalizeEmail(email),
		FirstName:  firstName,
		LastName:   lastName,
		Role:       domain.RoleSuperAdmin,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("create super admin: %w", err)
	}
	logger.Info("super admin created", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return nil
}
