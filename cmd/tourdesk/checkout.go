package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tourdesk/tourdesk/internal/auth"
	"github.com/tourdesk/tourdesk/internal/session"
)

var checkoutCmd = &cobra.Command{
	Use:         "checkout <booking-id>",
	Short:       "Create a payment checkout session for a booking.",
	Args:        usageArgs(cobra.ExactArgs(1)),
	Annotations: map[string]string{annotationStructuredLog: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.run(cmd, func(ctx context.Context, snap session.Snapshot) error {
			if err := requireRole(snap, auth.RoleUnresolved); err != nil {
				return err
			}
			sess, err := a.bookings.CreateCheckoutSession(ctx, args[0])
			if err != nil {
				return err
			}
			cmd.Printf("open this URL to pay:\n\n  %s\n", sess.RedirectURL)
			return nil
		})
	},
}
