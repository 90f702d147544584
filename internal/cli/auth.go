package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticketapp/internal/validation"
)

func signupCmd(app *App) *cobra.Command {
	var name, email, password, confirm string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if name, err = app.valueOrPrompt(name, "Name", false); err != nil {
				return err
			}
			if email, err = app.valueOrPrompt(email, "Email", false); err != nil {
				return err
			}
			if password == "" {
				if password, err = app.promptPassword("Password"); err != nil {
					return err
				}
				if confirm, err = app.promptPassword("Confirm password"); err != nil {
					return err
				}
			}
			if err := validation.Signup(name, email, password, confirm); err != nil {
				return err
			}

			ws, err := app.current(cmd)
			if err != nil {
				return err
			}
			return ws.Signup(cmd.Context(), email, password, name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation")
	return cmd
}

func loginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email, err = app.valueOrPrompt(email, "Email", false); err != nil {
				return err
			}
			if password, err = app.valueOrPrompt(password, "Password", true); err != nil {
				return err
			}
			if err := validation.Login(email, password); err != nil {
				return err
			}

			ws, err := app.current(cmd)
			if err != nil {
				return err
			}
			return ws.Login(cmd.Context(), email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func logoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.current(cmd)
			if err != nil {
				return err
			}
			ws.Logout(cmd.Context())
			return nil
		},
	}
}

func whoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.current(cmd)
			if err != nil {
				return err
			}
			user := ws.Session.CurrentUser()
			if user == nil {
				fmt.Fprintln(app.out, "Not signed in")
				return nil
			}
			fmt.Fprintf(app.out, "%s <%s> (%s)\n", user.Name, user.Email, user.ID)
			return nil
		},
	}
}
