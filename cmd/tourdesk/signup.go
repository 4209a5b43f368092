package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/tourdesk/tourdesk/internal/auth"
	"github.com/tourdesk/tourdesk/internal/session"
)

var (
	signupEmail         string
	signupPassword      string
	signupPasswordStdin bool
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in.",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := auth.NormalizeEmail(signupEmail)
		if email == "" {
			return &exitError{code: exitUsage, err: errors.New("--email is required")}
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		return a.run(cmd, func(ctx context.Context, snap session.Snapshot) error {
			if snap.Identity != nil {
				cmd.Printf("already signed in as %s; run `tourdesk logout` first\n", snap.Identity.Email)
				return nil
			}

			password, err := resolvePassword(cmd, signupPassword, signupPasswordStdin, true)
			if err != nil {
				return err
			}
			if _, err := a.adapter.CreateAccount(ctx, email, password); err != nil {
				return err
			}

			settled, err := a.waitSettled(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("account created: %s\n", email)
			printSession(cmd, settled)
			return nil
		})
	},
}

func init() {
	signupCmd.Flags().StringVar(&signupEmail, "email", "", "Email address for the new account")
	signupCmd.Flags().StringVar(&signupPassword, "password", "", "Password (discouraged; prefer --password-stdin)")
	signupCmd.Flags().BoolVar(&signupPasswordStdin, "password-stdin", false, "Read the password from stdin")
}
