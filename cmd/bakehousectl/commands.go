package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bakehouse/internal/app"
	"bakehouse/internal/config"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/domain/auth"
	"bakehouse/internal/domain/events"
	"bakehouse/internal/infrastructure/storage/postgres/migrations"
	"bakehouse/pkg/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bakehousectl",
		Short:         "Administer the bakehouse inventory database",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(),
		newMigrationsCmd(),
		newSeedAdminCmd(),
		newCreateUserCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), true, func(_ context.Context, _ *config.Config, _ *app.Database) error {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			})
		},
	}
}

func newMigrationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrations",
		Short: "List the migrations embedded in this binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, err := migrations.List()
			if err != nil {
				return err
			}
			return printMigrations(cmd.OutOrStdout(), all)
		},
	}
}

func printMigrations(w io.Writer, all []migrations.Migration) error {
	for _, m := range all {
		if _, err := fmt.Fprintln(w, m.Version); err != nil {
			return err
		}
	}
	return nil
}

func newSeedAdminCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin account if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), false, func(ctx context.Context, cfg *config.Config, db *app.Database) error {
				services, err := app.NewServices(cfg, db, app.Options{Publisher: events.Discard})
				if err != nil {
					return err
				}
				if password == "" {
					password = cfg.Auth.AdminPassword
				}
				created, err := services.Auth.EnsureAdmin(ctx, password)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintln(cmd.OutOrStdout(), "admin account created")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "admin account already exists")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Admin password (defaults to ADMIN_PASSWORD)")
	return cmd
}

type createUserFlags struct {
	username string
	password string
	role     string
}

func (f createUserFlags) validate() error {
	if !appctx.IsValidRole(f.role) {
		return fmt.Errorf("unknown role %q; expected one of %v", f.role, appctx.Roles)
	}
	return nil
}

func newCreateUserCmd() *cobra.Command {
	var flags createUserFlags
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an operator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			return withDatabase(cmd.Context(), false, func(ctx context.Context, cfg *config.Config, db *app.Database) error {
				services, err := app.NewServices(cfg, db, app.Options{Publisher: events.Discard})
				if err != nil {
					return err
				}
				user, err := services.Auth.CreateUser(ctx, auth.CreateUserInput{
					Username: flags.username,
					Password: flags.password,
					Role:     flags.role,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) id=%s\n", user.Username, user.Role, user.ID)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.username, "username", "", "Login name")
	f.StringVar(&flags.password, "password", "", "Initial password")
	f.StringVar(&flags.role, "role", "", "One of warehouse, kitchen, operations, admin")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

// withDatabase loads configuration, opens the pool and runs fn.
func withDatabase(ctx context.Context, migrate bool, fn func(ctx context.Context, cfg *config.Config, db *app.Database) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logger())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	db, err := app.OpenDatabase(ctx, cfg, "bakehousectl", migrate)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, cfg, db)
}
