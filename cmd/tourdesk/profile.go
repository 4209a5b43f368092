package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/tourdesk/tourdesk/internal/session"
)

var (
	profileName  string
	profilePhoto string
)

var profileCmd = &cobra.Command{
	Use:         "profile",
	Short:       "Update the signed-in user's display name or photo.",
	Args:        usageArgs(cobra.NoArgs),
	Annotations: map[string]string{annotationStructuredLog: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if profileName == "" && profilePhoto == "" {
			return &exitError{code: exitUsage, err: errors.New("nothing to update; pass --name or --photo")}
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.run(cmd, func(ctx context.Context, snap session.Snapshot) error {
			if err := a.adapter.UpdateProfile(ctx, profileName, profilePhoto); err != nil {
				return err
			}
			settled, err := a.waitSettled(ctx)
			if err != nil {
				return err
			}
			cmd.Println("profile updated")
			printSession(cmd, settled)
			return nil
		})
	},
}

func init() {
	profileCmd.Flags().StringVar(&profileName, "name", "", "New display name")
	profileCmd.Flags().StringVar(&profilePhoto, "photo", "", "New photo URL")
}
