package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tourdesk/tourdesk/internal/auth"
	"github.com/tourdesk/tourdesk/internal/booking"
	"github.com/tourdesk/tourdesk/internal/session"
)

var bookingsCmd = &cobra.Command{
	Use:         "bookings",
	Short:       "Manage your bookings.",
	Annotations: map[string]string{annotationStructuredLog: "true"},
}

var bookingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your bookings.",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.run(cmd, func(ctx context.Context, snap session.Snapshot) error {
			if err := requireRole(snap, auth.RoleUnresolved); err != nil {
				return err
			}
			list, err := a.bookings.BookingsForEmail(ctx, snap.Identity.Email)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				cmd.Println("no bookings")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTOUR\tSTATUS\tPRICE")
			for _, b := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n", b.ID, b.TourID, b.Status, b.Price)
			}
			return w.Flush()
		})
	},
}

var bookingsCreatePrice float64

var bookingsCreateCmd = &cobra.Command{
	Use:   "create <tour-id>",
	Short: "Book a tour.",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		if bookingsCreatePrice <= 0 {
			return &exitError{code: exitUsage, err: errors.New("--price must be positive")}
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.run(cmd, func(ctx context.Context, snap session.Snapshot) error {
			if err := requireRole(snap, auth.RoleUnresolved); err != nil {
				return err
			}
			b, err := a.bookings.CreateBooking(ctx, booking.NewBooking{
				TourID: args[0],
				Email:  snap.Identity.Email,
				Price:  bookingsCreatePrice,
			})
			if err != nil {
				return err
			}
			cmd.Printf("booked: %s (status %s)\n", b.ID, b.Status)
			return nil
		})
	},
}

var bookingsCancelCmd = &cobra.Command{
	Use:   "cancel <booking-id>",
	Short: "Cancel a booking.",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.run(cmd, func(ctx context.Context, snap session.Snapshot) error {
			if err := requireRole(snap, auth.RoleUnresolved); err != nil {
				return err
			}
			b, err := a.bookings.CancelBooking(ctx, args[0])
			if err != nil {
				return err
			}
			cmd.Printf("cancelled: %s\n", b.ID)
			return nil
		})
	},
}

func init() {
	bookingsCreateCmd.Flags().Float64Var(&bookingsCreatePrice, "price", 0, "Booking price")
	_ = bookingsCreateCmd.MarkFlagRequired("price")
	bookingsCmd.AddCommand(bookingsListCmd, bookingsCreateCmd, bookingsCancelCmd)
}
