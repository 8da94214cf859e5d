package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	identityservice "github.com/Badrul886/riverside/internal/identity/service"
	userdomain "github.com/Badrul886/riverside/internal/user/domain"
)

// Development accounts created by "users seed".
const (
	devAdminEmail = "admin@example.com"
	devUserEmail  = "dev@example.com"
	devPassword   = "password123"
)

func newUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUsersCreateCommand(), newUsersSeedCommand())
	return cmd
}

func newUsersCreateCommand() *cobra.Command {
	var in identityservice.RegisterInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account; the only way to provision admins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()
			in.ConfirmPassword = in.Password
			id, err := identityservice.NewAuthService(e.users, e.hasher, e.auditLogger()).Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&in.Role, "role", userdomain.RoleUser, "user or admin")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// newUsersSeedCommand creates the development accounts. Existing accounts are left alone.
func newUsersSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create development accounts (idempotent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()
			if e.cfg.IsProduction() {
				return errors.New("refusing to seed a production database")
			}
			svc := identityservice.NewAuthService(e.users, e.hasher, e.auditLogger())
			for _, in := range []identityservice.RegisterInput{
				{Name: "Dev Admin", Email: devAdminEmail, Role: userdomain.RoleAdmin},
				{Name: "Dev User", Email: devUserEmail, Role: userdomain.RoleUser},
			} {
				in.Password, in.ConfirmPassword = devPassword, devPassword
				id, err := svc.Register(cmd.Context(), in)
				switch {
				case errors.Is(err, identityservice.ErrEmailAlreadyRegistered):
					fmt.Fprintf(cmd.OutOrStdout(), "%s exists, skipped\n", in.Email)
				case err != nil:
					return err
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s created (%s)\n", in.Email, id)
				}
			}
			return nil
		},
	}
}
