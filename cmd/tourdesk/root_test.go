package main

import "testing"

func TestRootCommand_RegistersBookingCommands(t *testing.T) {
	t.Parallel()

	if cmd, _, err := rootCmd.Find([]string{"bookings", "create"}); err != nil || cmd == nil || cmd.Name() != "create" {
		t.Fatalf("bookings create command not registered: cmd=%v err=%v", cmd, err)
	}
	if cmd, _, err := rootCmd.Find([]string{"checkout"}); err != nil || cmd == nil || cmd.Name() != "checkout" {
		t.Fatalf("checkout command not registered: cmd=%v err=%v", cmd, err)
	}
}

func TestCommandUsesStructuredLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want bool
	}{
		{name: "whoami", args: []string{"whoami"}, want: true},
		{name: "logout", args: []string{"logout"}, want: true},
		{name: "profile", args: []string{"profile"}, want: true},
		{name: "tours", args: []string{"tours"}, want: true},
		{name: "bookings list", args: []string{"bookings", "list"}, want: true},
		{name: "bookings create", args: []string{"bookings", "create"}, want: true},
		{name: "checkout", args: []string{"checkout"}, want: true},
		{name: "login", args: []string{"login"}, want: false},
		{name: "signup", args: []string{"signup"}, want: false},
		{name: "version", args: []string{"version"}, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cmd, _, err := rootCmd.Find(tc.args)
			if err != nil {
				t.Fatalf("Find(%v) error = %v", tc.args, err)
			}
			if cmd == nil {
				t.Fatalf("Find(%v) returned nil command", tc.args)
			}

			if got := commandUsesStructuredLogging(cmd); got != tc.want {
				t.Fatalf("commandUsesStructuredLogging(%q) = %v, want %v", cmd.CommandPath(), got, tc.want)
			}
		})
	}
}
