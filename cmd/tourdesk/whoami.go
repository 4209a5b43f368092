package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tourdesk/tourdesk/internal/session"
)

var whoamiCmd = &cobra.Command{
	Use:         "whoami",
	Short:       "Show the current session.",
	Args:        usageArgs(cobra.NoArgs),
	Annotations: map[string]string{annotationStructuredLog: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.run(cmd, func(ctx context.Context, snap session.Snapshot) error {
			printSession(cmd, snap)
			return nil
		})
	},
}

func printSession(cmd *cobra.Command, snap session.Snapshot) {
	if snap.Identity == nil {
		cmd.Println("not signed in")
		return
	}
	cmd.Printf("signed in as %s", snap.Identity.Email)
	if snap.Identity.DisplayName != "" {
		cmd.Printf(" (%s)", snap.Identity.DisplayName)
	}
	cmd.Println()

	if snap.Degraded() {
		cmd.Println("warning: no backend session could be established; bookings are unavailable")
		return
	}
	cmd.Printf("role: %s\n", snap.Role)
}
