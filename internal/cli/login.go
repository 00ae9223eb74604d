package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/five82/roster/internal/api"
	"github.com/five82/roster/internal/app"
)

func newLoginCommand(flags *globalFlags) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Long: `Sign in with an email and password. Missing values are asked for
interactively. The token is saved to session_file with owner-only permissions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" || password == "" {
				if err := promptCredentials(cmd, &email, &password); err != nil {
					return err
				}
			}

			env, err := app.Bootstrap(flags.options())
			if err != nil {
				return err
			}
			defer env.Close()

			sess, err := app.Login(cmd.Context(), env, env.Client, api.Credentials{
				Email:    strings.TrimSpace(email),
				Password: password,
			})
			if err != nil {
				if errors.Is(err, api.ErrInvalidCredentials) {
					return err
				}
				return fmt.Errorf("%w: %s", api.ErrLoginFailed, api.Describe(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", sess.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return cmd
}

func promptCredentials(cmd *cobra.Command, email, password *string) error {
	required := func(label string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", label)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("eve.holt@reqres.in").
				Value(email).
				Validate(required("email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password).
				Validate(required("password")),
		),
	)
	return form.RunWithContext(cmd.Context())
}

func newLogoutCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.Bootstrap(flags.options())
			if err != nil {
				return err
			}
			defer env.Close()

			if err := app.Logout(env); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
