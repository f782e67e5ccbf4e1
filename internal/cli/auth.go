package cli

import (
	"context"
	"fmt"

	"github.com/existflow/sockmatch/internal/model"
	"github.com/existflow/sockmatch/internal/session"
	"github.com/spf13/cobra"
)

func newAuthCmd(a *app) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
		Long:  `Create an account, sign in and out, and accept the terms of use.`,
	}

	var email, username string

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRegister(cmd.Context(), email, username)
		},
	}
	registerCmd.Flags().StringVar(&email, "email", "", "Account email")
	registerCmd.Flags().StringVar(&username, "username", "", "Optional display name")

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLogin(cmd.Context(), email)
		},
	}
	loginCmd.Flags().StringVar(&email, "email", "", "Account email or username")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.session.Logout(cmd.Context())
			a.println("✅ Logged out.")
			return nil
		},
	}

	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWhoami(cmd.Context())
		},
	}

	acceptCmd := &cobra.Command{
		Use:   "accept-terms",
		Short: "Accept the terms of use and privacy policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Auth().AcceptTerms(cmd.Context()); err != nil {
				return a.fail(cmd.Context(), err)
			}
			a.println("✅ Terms and privacy policy accepted.")
			return nil
		},
	}

	authCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd, acceptCmd)
	return authCmd
}

func (a *app) runRegister(ctx context.Context, email, username string) error {
	if email == "" {
		email = a.readLine("Email: ")
	}
	password := a.readPassword("Password: ")
	confirm := a.readPassword("Confirm Password: ")
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	a.println("🔄 Creating account...")
	user, err := a.session.Register(ctx, model.Credentials{Email: email, Username: username, Password: password})
	if err != nil {
		return a.fail(ctx, err)
	}

	a.printf("✅ Account created. Logged in as %s\n", user.DisplayName())
	if !user.HasAcceptedTerms() {
		a.println("Run 'sockmatch auth accept-terms' to accept the terms of use and privacy policy.")
	}
	return nil
}

func (a *app) runLogin(ctx context.Context, email string) error {
	if email == "" {
		email = a.readLine("Email: ")
	}
	password := a.readPassword("Password: ")

	a.println("🔄 Logging in...")
	user, err := a.session.Login(ctx, model.Credentials{Email: email, Password: password})
	if err != nil {
		return a.fail(ctx, err)
	}

	a.printf("✅ Logged in as %s\n", user.DisplayName())
	return nil
}

func (a *app) runWhoami(ctx context.Context) error {
	snap := a.session.Start(ctx)
	if snap.State != session.Authenticated {
		a.println("Not logged in.")
		return nil
	}

	u := snap.User
	a.printf("User:     %s\n", u.DisplayName())
	a.printf("Email:    %s\n", u.Email)
	a.printf("ID:       %d\n", u.ID)
	a.printf("Since:    %s\n", u.CreatedAt.Local().Format("2006-01-02"))
	if u.HasAcceptedTerms() {
		a.printf("Terms:    accepted %s\n", u.TermsAcceptedAt.Local().Format("2006-01-02"))
	} else {
		a.println("Terms:    not accepted")
	}
	return nil
}
