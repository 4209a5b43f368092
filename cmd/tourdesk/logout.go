package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tourdesk/tourdesk/internal/session"
)

var logoutCmd = &cobra.Command{
	Use:         "logout",
	Short:       "Sign out and clear the stored session token.",
	Args:        usageArgs(cobra.NoArgs),
	Annotations: map[string]string{annotationStructuredLog: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.run(cmd, func(ctx context.Context, snap session.Snapshot) error {
			if snap.Identity == nil {
				cmd.Println("not signed in")
				return nil
			}
			a.ctrl.SignOut(ctx)
			if _, err := a.waitSettled(ctx); err != nil {
				return err
			}
			cmd.Println("signed out")
			return nil
		})
	},
}
