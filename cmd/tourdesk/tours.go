package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tourdesk/tourdesk/internal/auth"
	"github.com/tourdesk/tourdesk/internal/session"
)

var toursCmd = &cobra.Command{
	Use:         "tours",
	Short:       "List bookable tours.",
	Args:        usageArgs(cobra.NoArgs),
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
			tours, err := a.bookings.Tours(ctx)
			if err != nil {
				return err
			}
			if len(tours) == 0 {
				cmd.Println("no tours available")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE\tDAYS")
			for _, t := range tours {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\n", t.ID, t.Name, t.Price, t.Duration)
			}
			return w.Flush()
		})
	},
}
