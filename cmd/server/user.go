package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/server"
	"github.com/sakif/blog/internal/service"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserAddCmd(a))
	return cmd
}

func newUserAddCmd(a *app) *cobra.Command {
	var (
		in            service.RegisterInput
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a password account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				in.Password = strings.TrimSpace(string(raw))
			}
			if in.Password == "" {
				return fmt.Errorf("a password is required: use --password or --password-stdin")
			}

			db, err := server.OpenUserDB(a.cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			// No session is issued, so no token service is needed.
			accounts := service.NewAuthService(db, nil, auth.NewPasswordService(), a.logger)
			user, err := accounts.CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Email, user.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&in.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&in.Picture, "picture", "", "avatar URL")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
