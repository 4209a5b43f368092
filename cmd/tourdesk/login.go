package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/tourdesk/tourdesk/internal/auth"
	"github.com/tourdesk/tourdesk/internal/session"
)

var (
	loginEmail         string
	loginPassword      string
	loginPasswordStdin bool
	loginSSOProvider   string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and establish a backend session.",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		return a.run(cmd, func(ctx context.Context, snap session.Snapshot) error {
			if snap.Identity != nil {
				cmd.Printf("already signed in as %s; run `tourdesk logout` first\n", snap.Identity.Email)
				return nil
			}

			if loginSSOProvider != "" {
				if _, err := a.adapter.SignInWithThirdParty(ctx, loginSSOProvider); err != nil {
					return err
				}
			} else {
				email := auth.NormalizeEmail(loginEmail)
				if email == "" {
					return &exitError{code: exitUsage, err: errors.New("--email is required (or use --sso)")}
				}
				password, err := resolvePassword(cmd, loginPassword, loginPasswordStdin, false)
				if err != nil {
					return err
				}
				if _, err := a.adapter.SignIn(ctx, email, password); err != nil {
					return err
				}
			}

			settled, err := a.waitSettled(ctx)
			if err != nil {
				return err
			}
			printSession(cmd, settled)
			return nil
		})
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Email address to sign in with")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (discouraged; prefer --password-stdin)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin")
	loginCmd.Flags().StringVar(&loginSSOProvider, "sso", "", "Sign in through a third-party provider (e.g. google.com)")
}
