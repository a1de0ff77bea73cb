package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nicopel-ti/helpdesk/internal/auth"
	"github.com/nicopel-ti/helpdesk/internal/config"
	"github.com/nicopel-ti/helpdesk/internal/domain"
	"github.com/nicopel-ti/helpdesk/internal/persistence"
	"github.com/nicopel-ti/helpdesk/internal/repository"
	"github.com/nicopel-ti/helpdesk/internal/service"
)

const commandTimeout = 30 * time.Second

func newMigrateCommand() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  `Apply all pending migrations, or roll back the latest one with --down.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPostgres(cmd.Context(), func(ctx context.Context, _ *config.Config, pg *persistence.Postgres, logger *zap.Logger) error {
				if down {
					return persistence.RollbackMigration(ctx, pg.Pool, logger)
				}
				return persistence.RunMigrations(ctx, pg.Pool, logger)
			})
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "Roll back the latest migration")
	return cmd
}

func newTokenCommand() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for an existing user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAuthService(cmd.Context(), func(ctx context.Context, auths *service.AuthService) error {
				token, expiresAt, err := auths.IssueToken(ctx, userID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage helpdesk accounts",
	}

	var name, email, role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user and print its id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAuthService(cmd.Context(), func(ctx context.Context, auths *service.AuthService) error {
				user, err := auths.ProvisionUser(ctx, name, email, domain.UserRole(role))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), user.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "Display name (required)")
	add.Flags().StringVar(&email, "email", "", "E-mail address (required)")
	add.Flags().StringVar(&role, "role", string(domain.UserRoleUser), "USER or ADMIN")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("email")

	cmd.AddCommand(add)
	return cmd
}

// withPostgres runs fn against a live database. Operator commands have no
// in-memory fallback.
func withPostgres(parent context.Context, fn func(context.Context, *config.Config, *persistence.Postgres, *zap.Logger) error) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required")
	}
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	return fn(ctx, cfg, pg, logger)
}

func withAuthService(parent context.Context, fn func(context.Context, *service.AuthService) error) error {
	return withPostgres(parent, func(ctx context.Context, cfg *config.Config, pg *persistence.Postgres, _ *zap.Logger) error {
		tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
		return fn(ctx, service.NewAuthService(repository.NewPostgresStore(pg.Pool), tokens))
	})
}
